package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"fareroute/internal/fare"
	"fareroute/internal/store"
)

const owner uint = 7

func intPtr(v int) *int { return &v }

func infoInput() InfoInput {
	return InfoInput{InfoDraft: fare.InfoDraft{
		RouteName:     "Центр - Аэропорт",
		TransportType: "0x20",
		CarrierID:     "7012",
		UnitID:        "0001",
		RouteNumber:   "854",
		RegionCode:    "66",
		DecimalPlaces: intPtr(2),
		TariffTables: []fare.TariffTableDraft{
			{Name: "Полный", TypeCode: "02", SeriesCodes: fare.SeriesCodes{"10", "20"}},
		},
	}}
}

func stopsInput(pairs ...string) StopsInput {
	var in StopsInput
	for i := 0; i+1 < len(pairs); i += 2 {
		in.Stops = append(in.Stops, fare.StopDraft{
			Name:     pairs[i+1],
			Distance: decimal.NewNullDecimal(decimal.RequireFromString(pairs[i])),
		})
	}
	return in
}

func pricesInput(raw string) PricesInput {
	return PricesInput{PriceMatrix: json.RawMessage(raw)}
}

// completeRoute walks a new route through every stage.
func completeRoute(t *testing.T, svc *RouteService) fare.Route {
	t.Helper()
	ctx := context.Background()
	r, err := svc.Create(ctx, owner, infoInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r, err = svc.SaveStops(ctx, owner, r.ID, stopsInput("0.00", "A", "1.00", "B", "3.50", "C")); err != nil {
		t.Fatalf("stops: %v", err)
	}
	if r, err = svc.SavePrices(ctx, owner, r.ID, pricesInput(`[{"i":0,"j":2,"prices":{"1":"10"}}]`)); err != nil {
		t.Fatalf("prices: %v", err)
	}
	if r.State() != fare.StatePriceComplete {
		t.Fatalf("state = %s, want %s", r.State(), fare.StatePriceComplete)
	}
	return r
}

func TestStagesAdvanceState(t *testing.T) {
	svc := NewRouteService(store.NewMemoryStore())
	r := completeRoute(t, svc)

	got, err := svc.Get(context.Background(), owner, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.StopsSet || !got.IsCompleted {
		t.Fatalf("flags = %v/%v, want both set", got.StopsSet, got.IsCompleted)
	}
	if got.Version != 3 {
		t.Fatalf("version = %d, want 3", got.Version)
	}
	if p := got.Prices.Price(0, 2, 1); !p.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("price = %s", p)
	}
}

func TestPricesBeforeStops(t *testing.T) {
	svc := NewRouteService(store.NewMemoryStore())
	ctx := context.Background()
	r, err := svc.Create(ctx, owner, infoInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.SavePrices(ctx, owner, r.ID, pricesInput(`[]`))
	var nerr *fare.NotReadyError
	if !errors.As(err, &nerr) || nerr.MissingStage != fare.StageStops {
		t.Fatalf("err = %v, want not ready on stops", err)
	}
}

func TestStopEditDemotes(t *testing.T) {
	svc := NewRouteService(store.NewMemoryStore())
	ctx := context.Background()
	r := completeRoute(t, svc)

	r, err := svc.SaveStops(ctx, owner, r.ID, stopsInput("0.00", "A", "1.20", "B", "3.50", "C"))
	if err != nil {
		t.Fatalf("stops: %v", err)
	}
	if r.IsCompleted {
		t.Fatal("route still completed after distance change")
	}
	if r.State() != fare.StateStopsDefined {
		t.Fatalf("state = %s", r.State())
	}
}

func TestRejectedStageLeavesRoute(t *testing.T) {
	svc := NewRouteService(store.NewMemoryStore())
	ctx := context.Background()
	r := completeRoute(t, svc)

	_, err := svc.SaveStops(ctx, owner, r.ID, stopsInput("0.00", "A", "2.50", "B", "2.50", "C"))
	var verr *fare.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want validation error", err)
	}

	got, err := svc.Get(ctx, owner, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != r.Version || !got.IsCompleted {
		t.Fatalf("route changed by rejected submission: version %d completed %v", got.Version, got.IsCompleted)
	}
}

func TestMalformedPricePayload(t *testing.T) {
	svc := NewRouteService(store.NewMemoryStore())
	ctx := context.Background()
	r := completeRoute(t, svc)

	_, err := svc.SavePrices(ctx, owner, r.ID, pricesInput(`{"0":{"1":5}}`))
	var derr *fare.DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("err = %v, want decode error", err)
	}
}

func TestStaleVersion(t *testing.T) {
	svc := NewRouteService(store.NewMemoryStore())
	ctx := context.Background()
	r := completeRoute(t, svc)

	in := stopsInput("0.00", "A", "1.00", "B", "4.00", "C")
	in.Version = intPtr(r.Version - 1)
	_, err := svc.SaveStops(ctx, owner, r.ID, in)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}

	in.Version = intPtr(r.Version)
	if _, err := svc.SaveStops(ctx, owner, r.ID, in); err != nil {
		t.Fatalf("current version rejected: %v", err)
	}
}

func TestOtherOwnerCannotSeeRoute(t *testing.T) {
	svc := NewRouteService(store.NewMemoryStore())
	ctx := context.Background()
	r := completeRoute(t, svc)

	if _, err := svc.Get(ctx, owner+1, r.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get err = %v", err)
	}
	if err := svc.Delete(ctx, owner+1, r.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("delete err = %v", err)
	}
	if err := svc.Delete(ctx, owner, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, owner, r.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get after delete err = %v", err)
	}
}

func TestGeometry(t *testing.T) {
	svc := NewRouteService(store.NewMemoryStore())
	ctx := context.Background()

	in := infoInput()
	bad := `{"type":"Point","coordinates":[60.6,56.8]}`
	in.Geometry = &bad
	_, err := svc.Create(ctx, owner, in)
	var verr *fare.ValidationError
	if !errors.As(err, &verr) || !verr.Has("geometry") {
		t.Fatalf("err = %v, want geometry error", err)
	}

	line := `{"type":"LineString","coordinates":[[60.6,56.8],[60.8,56.7]]}`
	in.Geometry = &line
	r, err := svc.Create(ctx, owner, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(r.Geometry) == 0 {
		t.Fatal("geometry not stored")
	}
}

func TestNullPricePayloadKeepsPrices(t *testing.T) {
	svc := NewRouteService(store.NewMemoryStore())
	ctx := context.Background()
	r := completeRoute(t, svc)

	_, err := svc.SavePrices(ctx, owner, r.ID, pricesInput(`null`))
	var derr *fare.DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("err = %v, want decode error", err)
	}

	got, err := svc.Get(ctx, owner, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != r.Version || !got.Prices.Price(0, 2, 1).Equal(decimal.NewFromInt(10)) {
		t.Fatalf("stored prices changed: version %d, matrix %v", got.Version, got.Prices)
	}
}
