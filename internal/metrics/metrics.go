// Package metrics provides Prometheus metrics for Warden.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "warden"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Ingestion metrics
var (
	// EventsIngestedTotal counts accepted events by type.
	EventsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ingested_total",
			Help:      "Total events accepted for storage",
		},
		[]string{"type"},
	)

	// EventsRejectedTotal counts events rejected before storage.
	EventsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "rejected_total",
			Help:      "Total events rejected (quota, validation)",
		},
		[]string{"reason"},
	)
)

// Alerting metrics
var (
	// AlertsFiredTotal counts alerts created by the evaluator by scope.
	AlertsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "fired_total",
			Help:      "Total alerts created by the evaluator",
		},
		[]string{"scope"},
	)

	// AlertsSuppressedTotal counts alerts suppressed by the cooldown guard.
	AlertsSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "suppressed_total",
			Help:      "Total alerts suppressed by the cooldown guard",
		},
	)

	// AlertsFailedTotal counts alerts that reached no destination.
	AlertsFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "failed_total",
			Help:      "Total alerts with no successful delivery",
		},
	)

	// EvaluationDuration tracks rule evaluation latency per event.
	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "evaluation_duration_seconds",
			Help:      "Alert rule evaluation latency per event",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)
)

// Notification metrics
var (
	// SMSSentTotal counts successful gateway deliveries per destination.
	SMSSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sms",
			Name:      "sent_total",
			Help:      "Total successful SMS deliveries",
		},
	)

	// SMSFailedTotal counts failed gateway deliveries per destination.
	SMSFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sms",
			Name:      "failed_total",
			Help:      "Total failed SMS deliveries",
		},
	)

	// DispatchDuration tracks notification dispatch latency per alert.
	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sms",
			Name:      "dispatch_duration_seconds",
			Help:      "Notification dispatch latency per alert",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Aggregation metrics
var (
	// AggregateCacheHits counts range aggregator cache hits.
	AggregateCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "cache_hits_total",
			Help:      "Range aggregator cache hits",
		},
	)

	// AggregateCacheMisses counts range aggregator cache misses.
	AggregateCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "cache_misses_total",
			Help:      "Range aggregator cache misses",
		},
	)
)
