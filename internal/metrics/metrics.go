package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal tracks fetch operations against the draw source.
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottopipe_fetches_total",
			Help: "Total number of fetch operations against the draw source",
		},
		[]string{"operation"},
	)

	// FetchErrorsTotal tracks fetch failures by error class.
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottopipe_fetch_errors_total",
			Help: "Total number of fetch failures",
		},
		[]string{"operation", "error_type"},
	)

	// FetchLatency tracks fetch latency per operation.
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lottopipe_fetch_latency_seconds",
			Help:    "Fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// CacheHitsTotal tracks cache hits per tier.
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottopipe_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"tier"},
	)

	// CacheMissesTotal tracks full cache misses (all tiers).
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lottopipe_cache_misses_total",
			Help: "Total number of cache misses across all tiers",
		},
	)

	// BreakerState exposes the scrape circuit breaker state
	// (0 = closed, 1 = open, 2 = half-open).
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lottopipe_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open",
		},
	)

	// LatestRound tracks the newest round served through the pipeline.
	LatestRound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lottopipe_latest_round",
			Help: "Latest validated round number",
		},
	)
)
