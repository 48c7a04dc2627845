package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fareroute/internal/fare"
	"fareroute/internal/faretable"
	"fareroute/internal/store"
)

var exportDate = time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) (*RouteService, *Exporter) {
	t.Helper()
	s := store.NewMemoryStore()
	return NewRouteService(s), NewExporter(s, time.Minute)
}

func TestExportRoute(t *testing.T) {
	svc, exp := newFixture(t)
	r := completeRoute(t, svc)

	f, err := exp.ExportRoute(context.Background(), owner, r.ID, exportDate)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if f.Name != "TRFZ_854_250307.txt" {
		t.Fatalf("name = %q", f.Name)
	}
	if !bytes.HasPrefix(f.Content, []byte("66;7012;0001;250307;2\r\n")) {
		t.Fatalf("header = %q", strings.SplitN(string(f.Content), "\r\n", 2)[0])
	}
	if !bytes.Contains(f.Content, []byte(";1000\r\n")) {
		t.Fatalf("scaled price missing: %q", f.Content)
	}
}

func TestExportRouteDefaultsToToday(t *testing.T) {
	svc, exp := newFixture(t)
	exp.now = func() time.Time { return exportDate }
	r := completeRoute(t, svc)

	f, err := exp.ExportRoute(context.Background(), owner, r.ID, time.Time{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if f.Name != "TRFZ_854_250307.txt" {
		t.Fatalf("name = %q", f.Name)
	}
}

func TestExportIncompleteRoute(t *testing.T) {
	svc, exp := newFixture(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, owner, infoInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = exp.ExportRoute(ctx, owner, r.ID, exportDate)
	var nerr *fare.NotReadyError
	if !errors.As(err, &nerr) || nerr.MissingStage != fare.StageStops {
		t.Fatalf("err = %v, want not ready on stops", err)
	}
}

func TestExportCacheFollowsVersion(t *testing.T) {
	svc, exp := newFixture(t)
	ctx := context.Background()
	r := completeRoute(t, svc)

	first, err := exp.ExportRoute(ctx, owner, r.ID, exportDate)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := svc.SavePrices(ctx, owner, r.ID, pricesInput(`[{"i":0,"j":2,"prices":{"1":"12.5"}}]`)); err != nil {
		t.Fatalf("prices: %v", err)
	}
	second, err := exp.ExportRoute(ctx, owner, r.ID, exportDate)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if bytes.Equal(first.Content, second.Content) {
		t.Fatal("export served stale content after a price change")
	}
	if !bytes.Contains(second.Content, []byte(";1250\r\n")) {
		t.Fatalf("new price missing: %q", second.Content)
	}
}

func TestExportBatch(t *testing.T) {
	svc, exp := newFixture(t)
	ctx := context.Background()
	a := completeRoute(t, svc)
	b := completeRoute(t, svc)

	region := "5"
	f, err := exp.ExportBatch(ctx, owner, []uint{a.ID, b.ID}, exportDate, HeaderOverride{
		RegionCode:    &region,
		DecimalPlaces: intPtr(0),
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if f.Name != "TRFZ_BULK_250307_(2routes).txt" || f.Routes != 2 {
		t.Fatalf("file = %q (%d routes)", f.Name, f.Routes)
	}
	if !bytes.HasPrefix(f.Content, []byte("05;7012;0001;250307;0\r\n")) {
		t.Fatalf("header = %q", strings.SplitN(string(f.Content), "\r\n", 2)[0])
	}
	if bytes.Contains(f.Content, []byte(";1000\r\n")) {
		t.Fatal("batch body not scaled by header decimal places")
	}
}

func TestExportBatchRejects(t *testing.T) {
	svc, exp := newFixture(t)
	ctx := context.Background()
	a := completeRoute(t, svc)
	draft, err := svc.Create(ctx, owner, infoInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := exp.ExportBatch(ctx, owner, nil, exportDate, HeaderOverride{}); !errors.Is(err, faretable.ErrEmptyBatch) {
		t.Fatalf("empty batch err = %v", err)
	}
	_, err = exp.ExportBatch(ctx, owner, []uint{a.ID, draft.ID}, exportDate, HeaderOverride{})
	var nerr *fare.NotReadyError
	if !errors.As(err, &nerr) {
		t.Fatalf("incomplete batch err = %v", err)
	}
	if _, err := exp.ExportBatch(ctx, owner+1, []uint{a.ID}, exportDate, HeaderOverride{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("foreign route err = %v", err)
	}
	bad := "12345678901"
	_, err = exp.ExportBatch(ctx, owner, []uint{a.ID}, exportDate, HeaderOverride{CarrierID: &bad})
	var verr *fare.ValidationError
	if !errors.As(err, &verr) || !verr.Has("carrier_id") {
		t.Fatalf("bad header err = %v", err)
	}
}
