package fare

import (
	"slices"
	"sort"
	"time"
)

// Stage is one step of the route edit workflow.
type Stage string

const (
	StageInfo   Stage = "info"
	StageStops  Stage = "stops"
	StagePrices Stage = "prices"
)

// State is the completeness state derived from a route's flags.
type State string

const (
	StateDraft         State = "draft"
	StateStopsDefined  State = "stops_defined"
	StatePriceComplete State = "price_complete"
)

const (
	MaxTariffTables  = 15
	MaxStopNameLen   = 19
	MaxTableNameLen  = 50
	MaxRouteNameLen  = 128
	MaxIdentifierLen = 10
	MaxRegionCodeLen = 5
	MaxDecimalPlaces = 3
	FirstTableType   = "02"
)

// Stop is a zone boundary along the route. Index 0 is the origin.
type Stop struct {
	Name     string   `json:"name"`
	Distance Distance `json:"km"`
}

// TariffTable is a fare class with its own price column.
type TariffTable struct {
	TabNumber   int      `json:"tab_number"`
	Name        string   `json:"name"`
	TypeCode    string   `json:"type_code"`
	SeriesCodes []string `json:"series_codes"`
}

func (t TariffTable) Equal(o TariffTable) bool {
	return t.TabNumber == o.TabNumber && t.Name == o.Name && t.TypeCode == o.TypeCode &&
		slices.Equal(t.SeriesCodes, o.SeriesCodes)
}

// Info holds the header fields edited in the first stage.
type Info struct {
	RouteName     string
	TransportType TransportType
	CarrierID     string
	UnitID        string
	RouteNumber   string
	RegionCode    string
	DecimalPlaces int
	TariffTables  []TariffTable
}

// Route is the aggregate root for one fare route.
type Route struct {
	ID      uint
	OwnerID uint
	// Version is bumped by the store on every successful write.
	Version int

	Info
	Stops    []Stop
	Prices   PriceMatrix
	Geometry []byte

	StopsSet    bool
	IsCompleted bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRoute starts a route in the info stage with no stops or prices.
func NewRoute(ownerID uint, info Info) Route {
	return Route{
		OwnerID: ownerID,
		Info:    cloneInfo(info),
		Stops:   []Stop{},
		Prices:  PriceMatrix{},
	}
}

func (r Route) State() State {
	switch {
	case r.IsCompleted:
		return StatePriceComplete
	case r.StopsSet:
		return StateStopsDefined
	default:
		return StateDraft
	}
}

// ApplyInfo returns a copy of r with info stored and flags recomputed.
func (r Route) ApplyInfo(info Info) Route {
	flags := RecomputeCompleteness(r, StageResult{Stage: StageInfo, Info: &info})
	next := r.Clone()
	next.Info = cloneInfo(info)
	next.setFlags(flags)
	return next
}

// ApplyStops returns a copy of r with stops stored and flags recomputed.
// Stored prices are kept even when the zone layout changes.
func (r Route) ApplyStops(stops []Stop) Route {
	flags := RecomputeCompleteness(r, StageResult{Stage: StageStops, Stops: stops})
	next := r.Clone()
	next.Stops = slices.Clone(stops)
	next.setFlags(flags)
	return next
}

// ApplyPrices stores a validated matrix. Stops must be set first.
func (r Route) ApplyPrices(m PriceMatrix) (Route, error) {
	if !r.StopsSet {
		return r, &NotReadyError{RouteID: r.ID, MissingStage: StageStops}
	}
	flags := RecomputeCompleteness(r, StageResult{Stage: StagePrices, Prices: m})
	next := r.Clone()
	next.Prices = m.Clone()
	next.setFlags(flags)
	return next, nil
}

// ExportReady returns a *NotReadyError naming the first missing stage.
func (r Route) ExportReady() error {
	if !r.StopsSet {
		return &NotReadyError{RouteID: r.ID, MissingStage: StageStops}
	}
	if !r.IsCompleted {
		return &NotReadyError{RouteID: r.ID, MissingStage: StagePrices}
	}
	return nil
}

// TabNumbers returns the tariff tab numbers in ascending order, which is
// the column order of the price lines.
func (r Route) TabNumbers() []int {
	tabs := make([]int, 0, len(r.TariffTables))
	for _, t := range r.TariffTables {
		tabs = append(tabs, t.TabNumber)
	}
	sort.Ints(tabs)
	return tabs
}

func (r Route) Clone() Route {
	c := r
	c.Info = cloneInfo(r.Info)
	c.Stops = slices.Clone(r.Stops)
	c.Prices = r.Prices.Clone()
	c.Geometry = slices.Clone(r.Geometry)
	return c
}

func (r *Route) setFlags(f CompletenessFlags) {
	r.StopsSet = f.StopsSet
	r.IsCompleted = f.IsCompleted
}

func cloneInfo(info Info) Info {
	c := info
	c.TariffTables = make([]TariffTable, len(info.TariffTables))
	for i, t := range info.TariffTables {
		t.SeriesCodes = slices.Clone(t.SeriesCodes)
		c.TariffTables[i] = t
	}
	return c
}

func tablesEqual(a, b []TariffTable) bool {
	return slices.EqualFunc(a, b, TariffTable.Equal)
}
