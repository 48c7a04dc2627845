package fare

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func intPtr(v int) *int { return &v }

func jsonUnmarshal(s string, v any) error { return json.Unmarshal([]byte(s), v) }

func validInfoDraft() InfoDraft {
	return InfoDraft{
		RouteName:     "Центр - Аэропорт",
		TransportType: "0x20",
		CarrierID:     "7012",
		UnitID:        "0001",
		RouteNumber:   "854",
		RegionCode:    "66",
		DecimalPlaces: intPtr(2),
		TariffTables: []TariffTableDraft{
			{Name: "Полный", TypeCode: "02", SeriesCodes: SeriesCodes{"10", "20"}},
		},
	}
}

func stopDrafts(pairs ...string) []StopDraft {
	out := make([]StopDraft, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, StopDraft{
			Name:     pairs[i+1],
			Distance: decimal.NewNullDecimal(decimal.RequireFromString(pairs[i])),
		})
	}
	return out
}

func requireValidationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return verr
}

func TestValidateInfoAccepts(t *testing.T) {
	info, err := ValidateInfo(validInfoDraft())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.TransportType != SuburbanBus {
		t.Errorf("transport type = %v", info.TransportType)
	}
	if info.TariffTables[0].TabNumber != 1 {
		t.Errorf("tab number defaulted to %d, want 1", info.TariffTables[0].TabNumber)
	}
	if info.DecimalPlaces != 2 {
		t.Errorf("decimal places = %d", info.DecimalPlaces)
	}
}

func TestValidateInfoAcceptsFifteenTables(t *testing.T) {
	d := validInfoDraft()
	types := []string{"P", "T", "F"}
	for i := 1; i < MaxTariffTables; i++ {
		d.TariffTables = append(d.TariffTables, TariffTableDraft{
			Name:        fmt.Sprintf("Льготный %d", i),
			TypeCode:    types[i%3],
			SeriesCodes: SeriesCodes{fmt.Sprintf("%02d", 30+i)},
		})
	}
	info, err := ValidateInfo(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.TariffTables) != MaxTariffTables {
		t.Fatalf("tables = %d", len(info.TariffTables))
	}

	d.TariffTables = append(d.TariffTables, TariffTableDraft{TabNumber: 15, Name: "extra", TypeCode: "P"})
	verr := requireValidationError(t, func() error { _, err := ValidateInfo(d); return err }())
	if !verr.Has("tariff_tables") {
		t.Errorf("expected table count violation, got %v", verr)
	}
}

func TestValidateInfoDuplicateSeriesNamesBothTables(t *testing.T) {
	d := validInfoDraft()
	d.TariffTables = []TariffTableDraft{
		{Name: "Полный", TypeCode: "02", SeriesCodes: SeriesCodes{"10", "12"}},
		{Name: "Студенческий", TypeCode: "P", SeriesCodes: SeriesCodes{"30"}},
		{Name: "Пенсионный", TypeCode: "T", SeriesCodes: SeriesCodes{"12"}},
	}
	_, err := ValidateInfo(d)
	verr := requireValidationError(t, err)

	structural := verr.Structural()
	if len(structural) != 1 {
		t.Fatalf("structural errors = %v, want exactly one", structural)
	}
	fe := structural[0]
	if fe.Rule != RuleDuplicateSeries {
		t.Errorf("rule = %s", fe.Rule)
	}
	if len(fe.Tables) != 2 || fe.Tables[0] != 0 || fe.Tables[1] != 2 {
		t.Errorf("tables = %v, want [0 2]", fe.Tables)
	}
	if !strings.Contains(fe.Message, `"12"`) || !strings.Contains(fe.Message, "table 3") || !strings.Contains(fe.Message, "table 1") {
		t.Errorf("message %q should name the code and both tables", fe.Message)
	}
}

func TestValidateInfoCollectsAllViolations(t *testing.T) {
	d := InfoDraft{
		RouteName:     "",
		TransportType: "0x03",
		CarrierID:     "70a2",
		UnitID:        "",
		RouteNumber:   "12345678901",
		RegionCode:    "123456",
		DecimalPlaces: intPtr(4),
		TariffTables: []TariffTableDraft{
			{Name: "first", TypeCode: "P"},
			{Name: "second", TypeCode: "02", SeriesCodes: SeriesCodes{"1"}},
		},
	}
	_, err := ValidateInfo(d)
	verr := requireValidationError(t, err)
	for _, field := range []string{
		"route_name", "transport_type", "carrier_id", "unit_id", "route_number", "region_code",
		"decimal_places", "tariff_tables[0].type_code", "tariff_tables[0].series_codes",
		"tariff_tables[1].type_code", "tariff_tables[1].series_codes",
	} {
		if !verr.Has(field) {
			t.Errorf("missing violation for %s in %v", field, verr.Errors)
		}
	}
}

func TestValidateInfoDuplicateTabNumber(t *testing.T) {
	d := validInfoDraft()
	d.TariffTables = append(d.TariffTables, TariffTableDraft{TabNumber: 1, Name: "Льготный", TypeCode: "P", SeriesCodes: SeriesCodes{"30"}})
	_, err := ValidateInfo(d)
	verr := requireValidationError(t, err)
	if !verr.Has("tariff_tables[1].tab_number") {
		t.Fatalf("expected duplicate tab violation, got %v", verr.Errors)
	}
}

func TestValidateStops(t *testing.T) {
	cases := []struct {
		name  string
		stops []StopDraft
		tt    TransportType
		ok    bool
		rule  Rule
		field string
	}{
		{name: "suburban ok", stops: stopDrafts("0.00", "A", "2.50", "B", "3.75", "C"), tt: SuburbanBus, ok: true},
		{name: "urban single zone", stops: stopDrafts("0.00", "Центр"), tt: UrbanBus, ok: true},
		{name: "non strict increase", stops: stopDrafts("0.00", "A", "2.50", "B", "2.50", "C"), tt: SuburbanBus, rule: RuleMonotonicDistance, field: "stops[2].km"},
		{name: "decrease", stops: stopDrafts("0.00", "A", "3.00", "B", "1.00", "C"), tt: Tram, rule: RuleMonotonicDistance, field: "stops[2].km"},
		{name: "origin not zero", stops: stopDrafts("0.50", "A", "2.50", "B"), tt: SuburbanBus, rule: RuleOriginDistance, field: "stops[0].km"},
		{name: "single stop multi zone", stops: stopDrafts("0.00", "A"), tt: IntercityBus, rule: RuleStopCount, field: "stops"},
		{name: "urban with two stops", stops: stopDrafts("0.00", "A", "1.00", "B"), tt: UrbanBus, rule: RuleStopCount, field: "stops"},
		{name: "no stops", stops: nil, tt: Metro, rule: RuleStopCount, field: "stops"},
		{name: "precision", stops: stopDrafts("0.00", "A", "1.005", "B"), tt: Metro, field: "stops[1].km"},
		{name: "range", stops: stopDrafts("0.00", "A", "100.00", "B"), tt: Metro, field: "stops[1].km"},
		{name: "long name", stops: stopDrafts("0.00", "A", "1.00", "Очень длинное название"), tt: Metro, field: "stops[1].name"},
		{name: "trailing zeros accepted", stops: stopDrafts("0.000", "A", "5.400", "B"), tt: Metro, ok: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stops, err := ValidateStops(tc.stops, tc.tt)
			if tc.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(stops) != len(tc.stops) {
					t.Fatalf("got %d stops", len(stops))
				}
				return
			}
			verr := requireValidationError(t, err)
			if !verr.Has(tc.field) {
				t.Fatalf("expected violation on %s, got %v", tc.field, verr.Errors)
			}
			if tc.rule != "" {
				found := false
				for _, fe := range verr.Structural() {
					found = found || fe.Rule == tc.rule
				}
				if !found {
					t.Fatalf("expected rule %s, got %v", tc.rule, verr.Errors)
				}
			}
		})
	}
}

func TestValidateStopsMonotonicMessage(t *testing.T) {
	_, err := ValidateStops(stopDrafts("0.00", "A", "2.50", "B", "2.50", "C"), SuburbanBus)
	verr := requireValidationError(t, err)
	msg := verr.Structural()[0].Message
	for _, want := range []string{`"C"`, "index 2", "2.50"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q does not mention %s", msg, want)
		}
	}
}

func TestValidateStopsMissingDistance(t *testing.T) {
	_, err := ValidateStops([]StopDraft{{Name: "A"}, {Name: "B", Distance: decimal.NewNullDecimal(decimal.NewFromInt(1))}}, Metro)
	verr := requireValidationError(t, err)
	if !verr.Has("stops[0].km") {
		t.Fatalf("expected missing distance violation, got %v", verr.Errors)
	}
}

func TestSeriesCodesUnmarshal(t *testing.T) {
	var d TariffTableDraft
	if err := jsonUnmarshal(`{"series_codes":"10; 20;;P"}`, &d); err != nil {
		t.Fatal(err)
	}
	if strings.Join(d.SeriesCodes, ",") != "10,20,P" {
		t.Errorf("codes = %v", d.SeriesCodes)
	}
	if err := jsonUnmarshal(`{"series_codes":["10","20"]}`, &d); err != nil {
		t.Fatal(err)
	}
	if strings.Join(d.SeriesCodes, ",") != "10,20" {
		t.Errorf("codes = %v", d.SeriesCodes)
	}
	if err := jsonUnmarshal(`{"series_codes":12}`, &d); err == nil {
		t.Error("expected error for numeric series codes")
	}
}

func TestValidateRejectsFileSeparatorsInNames(t *testing.T) {
	for _, name := range []string{"X\r\n0;1;99999", "A;B", "tab\there"} {
		d := validInfoDraft()
		d.RouteName = name
		d.TariffTables[0].Name = name
		_, err := ValidateInfo(d)
		verr := requireValidationError(t, err)
		if !verr.Has("route_name") || !verr.Has("tariff_tables[0].name") {
			t.Errorf("%q: errors = %v", name, verr.Errors)
		}

		_, err = ValidateStops(stopDrafts("0.00", "A", "1.00", name), SuburbanBus)
		verr = requireValidationError(t, err)
		if !verr.Has("stops[1].name") {
			t.Errorf("%q: stop errors = %v", name, verr.Errors)
		}
	}
}
