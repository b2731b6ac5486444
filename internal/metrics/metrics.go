// Package metrics provides Prometheus metrics for observability.
// Metrics are organized by domain: role switches, storage writes, and
// event publication.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "role_state_sync"
)

var (
	// Switch metrics - track role transitions and strategy behavior
	SwitchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "switch",
			Name:      "total",
			Help:      "Total number of role switch requests by outcome",
		},
		[]string{"result"},
	)

	SwitchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "switch",
			Name:      "duration_seconds",
			Help:      "Role switch duration in seconds by winning path",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"path"},
	)

	StrategyAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "switch",
			Name:      "strategy_attempts_total",
			Help:      "Total number of switch strategy attempts by strategy and result",
		},
		[]string{"strategy", "result"},
	)

	StaleWritesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "switch",
			Name:      "stale_writes_total",
			Help:      "Total number of switch commits discarded because a newer write had already landed",
		},
	)

	// Storage metrics - track logical key fan-out behavior
	BackendWriteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "backend_write_failures_total",
			Help:      "Total number of physical key writes that failed during fan-out",
		},
		[]string{"backend"},
	)

	LogicalReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "logical_reads_total",
			Help:      "Total number of logical key reads by key and result",
		},
		[]string{"key", "result"},
	)

	// Event metrics - track bus publications
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of events published by topic",
		},
		[]string{"topic"},
	)

	SubscriberPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "subscriber_panics_total",
			Help:      "Total number of subscriber handlers that panicked and were isolated",
		},
		[]string{"topic"},
	)

	// Test mode metrics
	TestModeActivationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "testmode",
			Name:      "activations_total",
			Help:      "Total number of test mode activations",
		},
	)

	TestModeActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "testmode",
			Name:      "active",
			Help:      "Whether test mode is currently active (1) or not (0)",
		},
	)

	// HTTP metrics - track the ops API surface
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds by method and path",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)
)

// Switch outcome labels.
const (
	ResultSuccess    = "success"
	ResultRejected   = "rejected"
	ResultFailed     = "failed"
	ResultSuperseded = "superseded"
)

// ObserveSwitch records the outcome of a completed switch request.
func ObserveSwitch(result, path string, durationSeconds float64) {
	SwitchesTotal.WithLabelValues(result).Inc()
	if path != "" {
		SwitchDuration.WithLabelValues(path).Observe(durationSeconds)
	}
}

// ObserveStrategyAttempt records a single strategy attempt.
func ObserveStrategyAttempt(strategy, result string) {
	StrategyAttemptsTotal.WithLabelValues(strategy, result).Inc()
}

// Timer is a helper for measuring operation duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer starting now
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Seconds returns the elapsed time since the timer was created
func (t *Timer) Seconds() float64 {
	return time.Since(t.start).Seconds()
}

// ObserveDuration records the elapsed time since the timer was created
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}
