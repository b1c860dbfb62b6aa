package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Dispatch metrics
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudplane",
			Subsystem: "dispatch",
			Name:      "creates_total",
			Help:      "Total number of per-target create calls by kind, backend and result",
		},
		[]string{"kind", "backend", "result"},
	)

	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cloudplane",
			Subsystem: "dispatch",
			Name:      "create_duration_seconds",
			Help:      "Duration of per-target create calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"kind", "backend"},
	)

	// Scope cache metrics
	scopeEnsuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudplane",
			Subsystem: "dispatch",
			Name:      "scope_ensures_total",
			Help:      "Total number of scope lookups by backend and outcome (created, reused)",
		},
		[]string{"backend", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		dispatchTotal,
		dispatchDuration,
		scopeEnsuresTotal,
	)
}

// recordDispatchMetric records one per-target create call.
func recordDispatchMetric(kind Kind, backend, result string, duration float64) {
	dispatchTotal.WithLabelValues(string(kind), backend, result).Inc()
	dispatchDuration.WithLabelValues(string(kind), backend).Observe(duration)
}

// recordScopeEnsureMetric records a scope lookup outcome.
func recordScopeEnsureMetric(backend, outcome string) {
	scopeEnsuresTotal.WithLabelValues(backend, outcome).Inc()
}

// Metrics helper methods that check enableMetrics before recording.

func (s *Session) recordDispatch(kind Kind, backend, result string, duration float64) {
	if s.enableMetrics {
		recordDispatchMetric(kind, backend, result, duration)
	}
}

func (s *Session) recordScopeEnsure(backend, outcome string) {
	if s.enableMetrics {
		recordScopeEnsureMetric(backend, outcome)
	}
}
