// Package metrics holds the Prometheus collectors of the fare route service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const metricPrefix = "fareroute_"

var (
	StageTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "stage_transitions_total",
			Help: "Stage submissions stored, by stage and resulting state",
		},
		[]string{"stage", "state"},
	)

	ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "validation_failures_total",
			Help: "Rejected stage submissions, by stage and reason",
		},
		[]string{"stage", "reason"},
	)

	Exports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "exports_total",
			Help: "Fare files produced, by kind (single, bulk) and cache result",
		},
		[]string{"kind", "cache"},
	)

	ExportedRoutes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metricPrefix + "export_routes_total",
			Help: "Routes written into fare files",
		},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(StageTransitions, ValidationFailures, Exports, ExportedRoutes)
}
