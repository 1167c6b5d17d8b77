package telemetry

import "github.com/prometheus/client_golang/prometheus"

var SyncRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rowcol",
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Total number of sync runs by entity kind and outcome.",
	},
	[]string{"entity", "outcome"},
)

var SyncRunDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "rowcol",
		Subsystem: "sync",
		Name:      "run_duration_seconds",
		Help:      "Duration of a single entity sync run in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	},
	[]string{"entity"},
)

var CacheHitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rowcol",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Total number of orchestrator cache lookups by outcome.",
	},
	[]string{"outcome"}, // hit, stale_hit, miss
)

var StaleWritesIgnoredTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rowcol",
		Subsystem: "mirror",
		Name:      "stale_writes_ignored_total",
		Help:      "Total number of mirror writes dropped because the incoming sync token was not newer.",
	},
	[]string{"entity"},
)

var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "rowcol",
		Subsystem: "transport",
		Name:      "rate_limit_wait_seconds",
		Help:      "Time spent waiting on the rate limiter before an outbound ledger request.",
		Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"scope"}, // global, tenant
)

var TransportRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rowcol",
		Subsystem: "transport",
		Name:      "retries_total",
		Help:      "Total number of outbound ledger request retries by response classification.",
	},
	[]string{"classification"}, // token_invalid, rate_limited, server_error (5xx and network failures)
)

var CircuitBreakerStateChanges = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rowcol",
		Subsystem: "transport",
		Name:      "circuit_breaker_state_changes_total",
		Help:      "Total number of circuit breaker state transitions.",
	},
	[]string{"state"}, // open, half_open, closed
)

var JobStateTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rowcol",
		Subsystem: "jobs",
		Name:      "state_transitions_total",
		Help:      "Total number of background job state transitions.",
	},
	[]string{"from", "to"},
)

var JobQueueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "rowcol",
		Subsystem: "jobs",
		Name:      "queue_depth",
		Help:      "Current number of pending or running jobs by kind.",
	},
	[]string{"kind"},
)

var CredentialRefreshTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rowcol",
		Subsystem: "credentials",
		Name:      "refresh_total",
		Help:      "Total number of OAuth2 token refresh attempts by outcome.",
	},
	[]string{"outcome"}, // ok, failed
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "rowcol",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests served by the consumer-facing API, by method/route/status.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"method", "route", "status"},
)

var TransactionLogAppendsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rowcol",
		Subsystem: "txnlog",
		Name:      "appends_total",
		Help:      "Total number of transaction log entries appended, by entity kind.",
	},
	[]string{"entity"},
)

// All returns all rowcol-specific metrics for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		SyncRunsTotal,
		SyncRunDuration,
		HTTPRequestDuration,
		CacheHitsTotal,
		StaleWritesIgnoredTotal,
		RateLimitWaitSeconds,
		TransportRetriesTotal,
		CircuitBreakerStateChanges,
		JobStateTransitionsTotal,
		JobQueueDepth,
		CredentialRefreshTotal,
		TransactionLogAppendsTotal,
	}
}
