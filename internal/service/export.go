package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"fareroute/internal/fare"
	"fareroute/internal/faretable"
	"fareroute/internal/metrics"
	"fareroute/internal/store"
)

// ExportFile is a rendered fare file ready for download.
type ExportFile struct {
	Name    string
	Content []byte
	Routes  int
}

// HeaderOverride replaces bulk header fields taken from the first route.
type HeaderOverride struct {
	RegionCode    *string `json:"region_code"`
	CarrierID     *string `json:"carrier_id"`
	UnitID        *string `json:"unit_id"`
	DecimalPlaces *int    `json:"decimal_places"`
}

type Exporter struct {
	store store.RouteStore
	cache *cache.Cache
	now   func() time.Time
}

// NewExporter caches rendered files for ttl. Keys include route versions, so
// an edited route never hits a stale entry.
func NewExporter(s store.RouteStore, ttl time.Duration) *Exporter {
	return &Exporter{
		store: s,
		cache: cache.New(ttl, 2*ttl),
		now:   time.Now,
	}
}

// ExportRoute renders one route using its own header fields. A zero date
// means today.
func (e *Exporter) ExportRoute(ctx context.Context, ownerID, id uint, date time.Time) (ExportFile, error) {
	r, err := e.store.Get(ctx, id)
	if err != nil {
		return ExportFile{}, err
	}
	if r.OwnerID != ownerID {
		return ExportFile{}, store.ErrNotFound
	}
	date = e.day(date)

	h := faretable.HeaderFor(r, date)
	name := faretable.FileName(r.RouteNumber, date)
	return e.render("single", []fare.Route{r}, h, name, func() ([]byte, error) {
		return faretable.EncodeRoute(r, date)
	})
}

// ExportBatch renders several routes into one file. Every route must belong
// to ownerID and be export ready; otherwise nothing is produced.
func (e *Exporter) ExportBatch(ctx context.Context, ownerID uint, ids []uint, date time.Time, override HeaderOverride) (ExportFile, error) {
	if len(ids) == 0 {
		return ExportFile{}, faretable.ErrEmptyBatch
	}
	routes := make([]fare.Route, 0, len(ids))
	for _, id := range ids {
		r, err := e.store.Get(ctx, id)
		if err != nil {
			return ExportFile{}, fmt.Errorf("route %d: %w", id, err)
		}
		if r.OwnerID != ownerID {
			return ExportFile{}, fmt.Errorf("route %d: %w", id, store.ErrNotFound)
		}
		routes = append(routes, r)
	}
	date = e.day(date)

	h := faretable.HeaderFor(routes[0], date)
	override.apply(&h)
	if err := h.Validate(); err != nil {
		return ExportFile{}, err
	}
	name := faretable.BulkFileName(len(routes), date)
	return e.render("bulk", routes, h, name, func() ([]byte, error) {
		return faretable.EncodeBatch(routes, h)
	})
}

func (e *Exporter) render(kind string, routes []fare.Route, h faretable.Header, name string, encode func() ([]byte, error)) (ExportFile, error) {
	key := cacheKey(kind, routes, h)
	if content, ok := e.cache.Get(key); ok {
		metrics.Exports.WithLabelValues(kind, "hit").Inc()
		return ExportFile{Name: name, Content: content.([]byte), Routes: len(routes)}, nil
	}

	content, err := encode()
	if err != nil {
		return ExportFile{}, err
	}
	e.cache.SetDefault(key, content)
	metrics.Exports.WithLabelValues(kind, "miss").Inc()
	metrics.ExportedRoutes.Add(float64(len(routes)))
	logrus.WithFields(logrus.Fields{"kind": kind, "routes": len(routes), "file": name}).Info("fare file rendered")
	return ExportFile{Name: name, Content: content, Routes: len(routes)}, nil
}

func (e *Exporter) day(date time.Time) time.Time {
	if date.IsZero() {
		return e.now()
	}
	return date
}

func (o HeaderOverride) apply(h *faretable.Header) {
	if o.RegionCode != nil {
		h.RegionCode = *o.RegionCode
	}
	if o.CarrierID != nil {
		h.CarrierID = *o.CarrierID
	}
	if o.UnitID != nil {
		h.UnitID = *o.UnitID
	}
	if o.DecimalPlaces != nil {
		h.DecimalPlaces = *o.DecimalPlaces
	}
}

// cacheKey identifies a file by its header and the exact route versions in
// it. The date is part of the header.
func cacheKey(kind string, routes []fare.Route, h faretable.Header) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, r := range routes {
		b.WriteString("|")
		b.WriteString(strconv.FormatUint(uint64(r.ID), 10))
		b.WriteString("@")
		b.WriteString(strconv.Itoa(r.Version))
	}
	fmt.Fprintf(&b, "|%s;%s;%s;%s;%d", h.RegionCode, h.CarrierID, h.UnitID, h.Date.Format("060102"), h.DecimalPlaces)
	return b.String()
}
