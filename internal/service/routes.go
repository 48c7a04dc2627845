// Package service applies stage submissions to stored routes. Each
// submission is one read-modify-write against the store, guarded by the
// route version.
package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"fareroute/internal/fare"
	"fareroute/internal/geometry"
	"fareroute/internal/metrics"
	"fareroute/internal/store"
)

// InfoInput is an info stage submission. Version, when set, must match the
// stored version the client edited.
type InfoInput struct {
	fare.InfoDraft
	Geometry *string `json:"geometry"`
	Version  *int    `json:"version"`
}

type StopsInput struct {
	Stops   []fare.StopDraft `json:"stops"`
	Version *int             `json:"version"`
}

// PricesInput carries the raw price payload; it is decoded by the price
// stage validator, not by the request binder.
type PricesInput struct {
	PriceMatrix json.RawMessage `json:"price_matrix"`
	Version     *int            `json:"version"`
}

type RouteService struct {
	store store.RouteStore
}

func NewRouteService(s store.RouteStore) *RouteService {
	return &RouteService{store: s}
}

// Create stores a new route from its info stage.
func (s *RouteService) Create(ctx context.Context, ownerID uint, in InfoInput) (fare.Route, error) {
	info, err := fare.ValidateInfo(in.InfoDraft)
	if err != nil {
		return fare.Route{}, rejected(fare.StageInfo, err)
	}
	r := fare.NewRoute(ownerID, info)
	if in.Geometry != nil {
		if r.Geometry, err = geometry.FromGeoJSON(*in.Geometry); err != nil {
			return fare.Route{}, rejected(fare.StageInfo, geometryError(err))
		}
	}
	if err := s.store.Create(ctx, &r); err != nil {
		return fare.Route{}, err
	}
	stored(fare.StageInfo, r)
	logrus.WithFields(logrus.Fields{"route_id": r.ID, "owner_id": ownerID}).Info("route created")
	return r, nil
}

// Get returns a route owned by ownerID.
func (s *RouteService) Get(ctx context.Context, ownerID, id uint) (fare.Route, error) {
	return s.load(ctx, ownerID, id, nil)
}

func (s *RouteService) List(ctx context.Context, ownerID uint) ([]fare.Route, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

func (s *RouteService) ListAll(ctx context.Context) ([]fare.Route, error) {
	return s.store.ListAll(ctx)
}

// SaveInfo applies the info stage. Changing the transport type or the
// tariff tables demotes a completed route.
func (s *RouteService) SaveInfo(ctx context.Context, ownerID, id uint, in InfoInput) (fare.Route, error) {
	info, err := fare.ValidateInfo(in.InfoDraft)
	if err != nil {
		return fare.Route{}, rejected(fare.StageInfo, err)
	}
	var geom []byte
	if in.Geometry != nil {
		if geom, err = geometry.FromGeoJSON(*in.Geometry); err != nil {
			return fare.Route{}, rejected(fare.StageInfo, geometryError(err))
		}
	}
	return s.update(ctx, fare.StageInfo, ownerID, id, in.Version, func(r fare.Route) (fare.Route, error) {
		next := r.ApplyInfo(info)
		if in.Geometry != nil {
			next.Geometry = geom
		}
		return next, nil
	})
}

// SaveStops applies the stops stage against the stored transport type.
func (s *RouteService) SaveStops(ctx context.Context, ownerID, id uint, in StopsInput) (fare.Route, error) {
	return s.update(ctx, fare.StageStops, ownerID, id, in.Version, func(r fare.Route) (fare.Route, error) {
		stops, err := fare.ValidateStops(in.Stops, r.TransportType)
		if err != nil {
			return r, rejected(fare.StageStops, err)
		}
		return r.ApplyStops(stops), nil
	})
}

// SavePrices applies the prices stage. The payload is rejected as a whole
// if any part of it is malformed.
func (s *RouteService) SavePrices(ctx context.Context, ownerID, id uint, in PricesInput) (fare.Route, error) {
	return s.update(ctx, fare.StagePrices, ownerID, id, in.Version, func(r fare.Route) (fare.Route, error) {
		if !r.StopsSet {
			return r, rejected(fare.StagePrices, &fare.NotReadyError{RouteID: r.ID, MissingStage: fare.StageStops})
		}
		m, err := fare.ValidatePriceSubmission(in.PriceMatrix, len(r.Stops), r.TabNumbers())
		if err != nil {
			return r, rejected(fare.StagePrices, err)
		}
		return r.ApplyPrices(m)
	})
}

func (s *RouteService) Delete(ctx context.Context, ownerID, id uint) error {
	if _, err := s.load(ctx, ownerID, id, nil); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"route_id": id, "owner_id": ownerID}).Info("route deleted")
	return nil
}

// update runs one atomic read-modify-write. A concurrent writer between the
// read and the write surfaces as *store.ConflictError.
func (s *RouteService) update(ctx context.Context, stage fare.Stage, ownerID, id uint, version *int, apply func(fare.Route) (fare.Route, error)) (fare.Route, error) {
	current, err := s.load(ctx, ownerID, id, version)
	if err != nil {
		return fare.Route{}, err
	}
	next, err := apply(current)
	if err != nil {
		return fare.Route{}, err
	}
	if err := s.store.Put(ctx, &next); err != nil {
		if errors.Is(err, store.ErrConflict) {
			logrus.WithError(err).WithField("route_id", id).Warn("concurrent route edit rejected")
		}
		return fare.Route{}, err
	}
	stored(stage, next)
	return next, nil
}

// load reads a route and hides routes owned by someone else.
func (s *RouteService) load(ctx context.Context, ownerID, id uint, version *int) (fare.Route, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return fare.Route{}, err
	}
	if r.OwnerID != ownerID {
		return fare.Route{}, store.ErrNotFound
	}
	if version != nil && *version != r.Version {
		return fare.Route{}, &store.ConflictError{RouteID: id, Version: *version}
	}
	return r, nil
}

func stored(stage fare.Stage, r fare.Route) {
	metrics.StageTransitions.WithLabelValues(string(stage), string(r.State())).Inc()
}

func rejected(stage fare.Stage, err error) error {
	reason := "invalid"
	var (
		derr *fare.DecodeError
		nerr *fare.NotReadyError
	)
	switch {
	case errors.As(err, &derr):
		reason = "decode"
	case errors.As(err, &nerr):
		reason = "not_ready"
	}
	metrics.ValidationFailures.WithLabelValues(string(stage), reason).Inc()
	return err
}

func geometryError(err error) error {
	return &fare.ValidationError{
		Stage:  fare.StageInfo,
		Errors: []fare.FieldError{{Field: "geometry", Message: err.Error()}},
	}
}
