// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scoring engine.
type Metrics struct {
	// Scoring metrics
	BreakdownsComputed prometheus.Counter
	ScoringRuns        *prometheus.CounterVec
	ScoringDuration    prometheus.Histogram
	DataWarnings       prometheus.Counter

	// Record metrics
	RecordCandidates   *prometheus.CounterVec
	RecordTransitions  *prometheus.CounterVec
	InvalidTransitions prometheus.Counter

	// Aggregation metrics
	AggregationRuns            *prometheus.CounterVec
	AggregationInconsistencies prometheus.Counter
	StandingsCacheHits         prometheus.Counter
	StandingsCacheMisses       prometheus.Counter

	// Database metrics
	StoreErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "marathon_league"
	}

	return &Metrics{
		BreakdownsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "breakdowns_computed_total",
			Help:      "Total number of point breakdowns computed",
		}),
		ScoringRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "runs_total",
			Help:      "Total number of scoring invocations by outcome",
		}, []string{"outcome"}),
		ScoringDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "duration_seconds",
			Help:      "Scoring invocation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DataWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "data_warnings_total",
			Help:      "Total number of finish records recovered from invalid data",
		}),

		RecordCandidates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "candidates_total",
			Help:      "Total number of record candidates flagged by type",
		}, []string{"record_type"}),
		RecordTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "transitions_total",
			Help:      "Total number of confirmation transitions by action",
		}, []string{"action"}),
		InvalidTransitions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "invalid_transitions_total",
			Help:      "Total number of rejected confirmation attempts",
		}),

		AggregationRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "standings",
			Name:      "aggregation_runs_total",
			Help:      "Total number of aggregation runs by mode",
		}, []string{"mode"}),
		AggregationInconsistencies: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "standings",
			Name:      "aggregation_inconsistencies_total",
			Help:      "Total number of incremental updates that fell back to a full recompute",
		}),
		StandingsCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "standings",
			Name:      "cache_hits_total",
			Help:      "Total number of standings queries served from cache",
		}),
		StandingsCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "standings",
			Name:      "cache_misses_total",
			Help:      "Total number of standings queries that triggered a recompute",
		}),

		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total number of storage errors by store",
		}, []string{"store"}),
	}
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
