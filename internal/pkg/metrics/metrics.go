// Package metrics provides Prometheus metrics for comparison runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchUnitsTotal counts fetch units by final status.
	FetchUnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripprices",
			Name:      "fetch_units_total",
			Help:      "Total number of fetch units by source and status",
		},
		[]string{"source", "status"},
	)

	// FetchUnitDuration measures fetch unit wall time including the retry.
	FetchUnitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tripprices",
			Name:      "fetch_unit_duration_seconds",
			Help:      "Duration of fetch units in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		},
		[]string{"source"},
	)

	// OffersTotal counts offers delivered per source after deduplication.
	OffersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripprices",
			Name:      "offers_total",
			Help:      "Total number of offers collected",
		},
		[]string{"source"},
	)

	// ResolveFailuresTotal counts per-entity target resolution failures.
	ResolveFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripprices",
			Name:      "resolve_failures_total",
			Help:      "Total number of failed target resolutions",
		},
		[]string{"source"},
	)

	// ComparisonsTotal counts comparison runs by outcome.
	ComparisonsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripprices",
			Name:      "comparisons_total",
			Help:      "Total number of comparison runs",
		},
		[]string{"status"},
	)
)

// RecordUnit records one finished fetch unit.
func RecordUnit(source, status string, offers int, seconds float64) {
	FetchUnitsTotal.WithLabelValues(source, status).Inc()
	FetchUnitDuration.WithLabelValues(source).Observe(seconds)
	if offers > 0 {
		OffersTotal.WithLabelValues(source).Add(float64(offers))
	}
}

// RecordResolveFailure records a failed ResolveTargets call.
func RecordResolveFailure(source string) {
	ResolveFailuresTotal.WithLabelValues(source).Inc()
}

// RecordComparison records a finished comparison run.
func RecordComparison(status string) {
	ComparisonsTotal.WithLabelValues(status).Inc()
}
