package fare

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var seriesCodePattern = regexp.MustCompile(`^(\d{2}|[A-Z])$`)

// InfoDraft is the unvalidated input of the info stage.
type InfoDraft struct {
	RouteName     string             `json:"route_name"`
	TransportType string             `json:"transport_type"`
	CarrierID     string             `json:"carrier_id"`
	UnitID        string             `json:"unit_id"`
	RouteNumber   string             `json:"route_number"`
	RegionCode    string             `json:"region_code"`
	DecimalPlaces *int               `json:"decimal_places"`
	TariffTables  []TariffTableDraft `json:"tariff_tables"`
}

// TariffTableDraft is one submitted tariff table. A zero TabNumber takes
// the table's position plus one.
type TariffTableDraft struct {
	TabNumber   int         `json:"tab_number"`
	Name        string      `json:"name"`
	TypeCode    string      `json:"type_code"`
	SeriesCodes SeriesCodes `json:"series_codes"`
}

// SeriesCodes decodes from a JSON list or from a "10;20;P" string.
type SeriesCodes []string

func (s *SeriesCodes) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = SplitSeriesCodes(strings.Join(list, ";"))
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("series codes must be a list or a ';' separated string")
	}
	*s = SplitSeriesCodes(joined)
	return nil
}

// SplitSeriesCodes splits on ';' and drops blank tokens.
func SplitSeriesCodes(s string) []string {
	out := []string{}
	for _, tok := range strings.Split(s, ";") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// StopDraft is one submitted stop. Distance is kept as entered so precision
// and range can be reported per stop.
type StopDraft struct {
	Name     string              `json:"name"`
	Distance decimal.NullDecimal `json:"km"`
}

// ValidateInfo checks the info stage. Every violation is collected.
func ValidateInfo(d InfoDraft) (Info, error) {
	var c collector
	info := Info{
		RouteName:   strings.TrimSpace(d.RouteName),
		CarrierID:   strings.TrimSpace(d.CarrierID),
		UnitID:      strings.TrimSpace(d.UnitID),
		RouteNumber: strings.TrimSpace(d.RouteNumber),
		RegionCode:  strings.TrimSpace(d.RegionCode),
	}

	checkDigits(&c, "carrier_id", info.CarrierID, MaxIdentifierLen)
	checkDigits(&c, "unit_id", info.UnitID, MaxIdentifierLen)
	checkDigits(&c, "route_number", info.RouteNumber, MaxIdentifierLen)
	checkDigits(&c, "region_code", info.RegionCode, MaxRegionCodeLen)
	checkText(&c, "route_name", info.RouteName, MaxRouteNameLen)

	switch {
	case d.DecimalPlaces == nil:
		c.add("decimal_places", "is required")
	case *d.DecimalPlaces < 0 || *d.DecimalPlaces > MaxDecimalPlaces:
		c.add("decimal_places", "must be one of 0, 1, 2, 3")
	default:
		info.DecimalPlaces = *d.DecimalPlaces
	}

	tt, err := ParseTransportType(d.TransportType)
	if err != nil {
		c.add("transport_type", "%v", err)
	}
	info.TransportType = tt

	info.TariffTables = validateTables(&c, d.TariffTables)

	if err := c.err(StageInfo); err != nil {
		return Info{}, err
	}
	return info, nil
}

// CheckIdentifier reports whether value is a non-empty digit string of at
// most max characters. The returned message is empty when it is.
func CheckIdentifier(value string, max int) string {
	switch {
	case value == "":
		return "is required"
	case len(value) > max:
		return fmt.Sprintf("must be at most %d digits", max)
	case strings.TrimLeft(value, "0123456789") != "":
		return "must contain digits only"
	}
	return ""
}

// checkText checks a free-text field written into the fare file. The file
// separates fields with ';' and lines with CRLF, so neither may appear.
func checkText(c *collector, field, value string, max int) {
	switch n := utf8.RuneCountInString(value); {
	case n == 0:
		c.add(field, "is required")
	case n > max:
		c.add(field, "must be at most %d characters", max)
	case strings.ContainsFunc(value, breaksLine):
		c.add(field, "must not contain ';' or control characters")
	}
}

func breaksLine(r rune) bool {
	return r == ';' || unicode.IsControl(r)
}

func checkDigits(c *collector, field, value string, max int) {
	if msg := CheckIdentifier(value, max); msg != "" {
		c.add(field, "%s", msg)
	}
}

func validateTables(c *collector, drafts []TariffTableDraft) []TariffTable {
	if len(drafts) == 0 || len(drafts) > MaxTariffTables {
		c.add("tariff_tables", "must contain between 1 and %d tables", MaxTariffTables)
		if len(drafts) == 0 {
			return nil
		}
	}

	tables := make([]TariffTable, len(drafts))
	for i, d := range drafts {
		field := fmt.Sprintf("tariff_tables[%d]", i)
		t := TariffTable{
			TabNumber:   d.TabNumber,
			Name:        strings.TrimSpace(d.Name),
			TypeCode:    strings.TrimSpace(d.TypeCode),
			SeriesCodes: []string(d.SeriesCodes),
		}
		if t.SeriesCodes == nil {
			t.SeriesCodes = []string{}
		}
		if t.TabNumber == 0 {
			t.TabNumber = i + 1
		}

		if i == 0 {
			if t.TypeCode != FirstTableType {
				c.rule(RuleFirstTableType, field+".type_code", "table 1 must have type code %q", FirstTableType)
			}
			if len(t.SeriesCodes) == 0 {
				c.rule(RuleFirstTableType, field+".series_codes", "table 1 must list at least one series code")
			}
		} else if t.TypeCode != "P" && t.TypeCode != "T" && t.TypeCode != "F" {
			c.rule(RuleTableType, field+".type_code", "table %d must have type code P, T or F", i+1)
		}

		checkText(c, field+".name", t.Name, MaxTableNameLen)
		if t.TabNumber < 1 || t.TabNumber > MaxTariffTables {
			c.add(field+".tab_number", "must be between 1 and %d", MaxTariffTables)
		}
		for _, code := range t.SeriesCodes {
			if !seriesCodePattern.MatchString(code) {
				c.add(field+".series_codes", "series code %q must be two digits or one capital letter", code)
			}
		}
		tables[i] = t
	}

	tabOwner := make(map[int]int, len(tables))
	for i, t := range tables {
		if first, ok := tabOwner[t.TabNumber]; ok {
			fe := c.rule(RuleDuplicateTab, fmt.Sprintf("tariff_tables[%d].tab_number", i),
				"tab number %d of table %d is already used by table %d", t.TabNumber, i+1, first+1)
			fe.Tables = []int{first, i}
			continue
		}
		tabOwner[t.TabNumber] = i
	}

	// One pass over every series code, remembering which table owns it.
	codeOwner := make(map[string]int)
	for i, t := range tables {
		for _, code := range t.SeriesCodes {
			first, ok := codeOwner[code]
			if !ok {
				codeOwner[code] = i
				continue
			}
			field := fmt.Sprintf("tariff_tables[%d].series_codes", i)
			var fe *FieldError
			if first == i {
				fe = c.rule(RuleDuplicateSeries, field, "series code %q appears twice in table %d", code, i+1)
			} else {
				fe = c.rule(RuleDuplicateSeries, field,
					"series code %q in table %d is already used by table %d", code, i+1, first+1)
			}
			fe.Tables = []int{first, i}
		}
	}
	return tables
}

// checkStopCount returns a message when n stops are not allowed for t.
func checkStopCount(n int, t TransportType) string {
	if t.SingleZone() {
		if n != 1 {
			return "an urban bus route must have exactly one zone (stop 0)"
		}
		return ""
	}
	if n < 2 {
		return "a multi-zone route needs at least two stops (origin and terminus)"
	}
	return ""
}

// ValidateStops checks a stop sequence for a route of type t.
func ValidateStops(drafts []StopDraft, t TransportType) ([]Stop, error) {
	var c collector
	if msg := checkStopCount(len(drafts), t); msg != "" {
		c.rule(RuleStopCount, "stops", "%s", msg)
	}

	stops := make([]Stop, len(drafts))
	var prev *Stop
	for i, d := range drafts {
		field := fmt.Sprintf("stops[%d]", i)
		name := strings.TrimSpace(d.Name)
		checkText(&c, field+".name", name, MaxStopNameLen)
		stops[i].Name = name

		if !d.Distance.Valid {
			c.add(field+".km", "is required")
			prev = nil
			continue
		}
		dist, err := DistanceFromDecimal(d.Distance.Decimal)
		if err != nil {
			c.add(field+".km", "%v", err)
			prev = nil
			continue
		}
		stops[i].Distance = dist

		if i == 0 && dist != 0 {
			c.rule(RuleOriginDistance, field+".km", "the first stop must be at 0.00 km, got %s", dist)
		}
		if i > 0 && prev != nil && dist <= prev.Distance {
			label := name
			if label == "" {
				label = fmt.Sprintf("#%d", i)
			}
			c.rule(RuleMonotonicDistance, field+".km",
				"stop %q (index %d) at %s km must be strictly further than the previous stop at %s km",
				label, i, dist, prev.Distance)
		}
		prev = &stops[i]
	}

	if err := c.err(StageStops); err != nil {
		return nil, err
	}
	return stops, nil
}

// ValidatePriceSubmission decodes a price payload against the current zone
// count and tariff tabs. Cells outside 0 <= i <= j < stopCount reject the
// whole submission; prices for unknown tabs are dropped.
func ValidatePriceSubmission(raw []byte, stopCount int, tabNumbers []int) (PriceMatrix, error) {
	cells, err := DecodePricePayload(raw)
	if err != nil {
		return nil, err
	}
	known := make(map[int]bool, len(tabNumbers))
	for _, tab := range tabNumbers {
		known[tab] = true
	}

	m := make(PriceMatrix, len(cells))
	for _, cell := range cells {
		if cell.I < 0 || cell.J < cell.I || cell.J >= stopCount {
			return nil, decodeErr(nil, "cell (%d,%d) is outside the upper triangle of %d zones", cell.I, cell.J, stopCount)
		}
		for tab, p := range cell.Prices {
			if known[tab] {
				m.Set(cell.I, cell.J, tab, p)
			}
		}
	}
	return m, nil
}
