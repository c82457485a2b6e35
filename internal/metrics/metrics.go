package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for monitoring decision-engine health and performance
var (
	SuppressionChecksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "suppression_checks_total",
			Help: "Total number of suppression resolutions performed",
		},
	)

	SuppressionHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "suppression_hits_total",
			Help: "Resolutions that found at least one suppressed advertiser",
		},
	)

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "suppression_cache_hits_total",
			Help: "Suppression check cache hits",
		},
	)

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "suppression_cache_misses_total",
			Help: "Suppression check cache misses",
		},
	)

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "suppression_cache_entries",
			Help: "Current number of entries in the suppression check cache",
		},
	)

	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ad_decisions_total",
			Help: "Ad decisions by outcome",
		},
		[]string{"outcome"},
	)

	ResolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "suppression_resolve_duration_seconds",
			Help:    "End-to-end suppression resolution latency",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	ImportRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suppression_import_rows_total",
			Help: "Bulk import rows by disposition",
		},
		[]string{"disposition"}, // imported, duplicate, invalid
	)
)

// Decision outcomes recorded in DecisionsTotal.
const (
	OutcomeServed     = "served"
	OutcomeSuppressed = "suppressed"
	OutcomeNoBanner   = "no_banner"
	OutcomeFallback   = "fallback"
)

// Register adds all collectors to the given registry. Call once at startup.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		SuppressionChecksTotal,
		SuppressionHitsTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEntries,
		DecisionsTotal,
		ResolveDuration,
		ImportRowsTotal,
	)
}
