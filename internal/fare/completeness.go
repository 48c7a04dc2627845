package fare

import "slices"

// CompletenessFlags gate the export of a route.
type CompletenessFlags struct {
	StopsSet    bool
	IsCompleted bool
}

// StageResult is the validated outcome of one stage submission.
type StageResult struct {
	Stage  Stage
	Info   *Info
	Stops  []Stop
	Prices PriceMatrix
}

// RecomputeCompleteness derives the flags that hold after applying result
// to prev. Demotion only flips IsCompleted; stored stops and prices are
// left for the caller to keep.
func RecomputeCompleteness(prev Route, result StageResult) CompletenessFlags {
	flags := CompletenessFlags{StopsSet: prev.StopsSet, IsCompleted: prev.IsCompleted}

	switch result.Stage {
	case StageInfo:
		if result.Info == nil {
			return flags
		}
		if result.Info.TransportType != prev.TransportType || !tablesEqual(result.Info.TariffTables, prev.TariffTables) {
			flags.IsCompleted = false
		}
		// A new transport type can make the stored zone count illegal,
		// e.g. switching a two-zone route to urban bus.
		if flags.StopsSet && result.Info.TransportType != prev.TransportType &&
			checkStopCount(len(prev.Stops), result.Info.TransportType) != "" {
			flags.StopsSet = false
		}
	case StageStops:
		flags.StopsSet = true
		if !slices.Equal(result.Stops, prev.Stops) {
			flags.IsCompleted = false
		}
	case StagePrices:
		flags.IsCompleted = flags.StopsSet
	}
	return flags
}
