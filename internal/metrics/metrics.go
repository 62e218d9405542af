// Package metrics provides Prometheus metrics for seatwatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "seatwatch"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
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
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

// Scheduler metrics
var (
	// PassesTotal counts completed monitor passes.
	PassesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "passes_total",
			Help:      "Total monitor passes run",
		},
	)

	// PassDuration tracks how long a full pass takes.
	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "pass_duration_seconds",
			Help:      "Monitor pass duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// SkippedTicksTotal counts ticks dropped because a pass was running.
	SkippedTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "skipped_ticks_total",
			Help:      "Ticks skipped because the previous pass was still running",
		},
	)

	// IntervalSeconds is the current tick interval.
	IntervalSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "interval_seconds",
			Help:      "Current scheduler tick interval in seconds",
		},
	)

	// PendingWatches is the pending count seen by the latest cadence check.
	PendingWatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "pending_watches",
			Help:      "Pending watches observed at the last cadence check",
		},
	)
)

// Monitor metrics
var (
	// ProviderCallsTotal counts availability probes by outcome.
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Availability provider calls by outcome",
		},
		[]string{"outcome"},
	)

	// ProviderCallDuration tracks provider latency.
	ProviderCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Availability provider latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// TransitionsTotal counts watches leaving PENDING, by status and reason.
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "transitions_total",
			Help:      "Watch status transitions by resulting status and reason",
		},
		[]string{"status", "reason"},
	)

	// GroupErrorsTotal counts groups whose processing failed unexpectedly.
	GroupErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "group_errors_total",
			Help:      "Groups aborted by an unexpected error or panic",
		},
	)
)

// Notification metrics
var (
	// NotificationsTotal counts outbox deliveries by result.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "deliveries_total",
			Help:      "Notification deliveries by result",
		},
		[]string{"result"},
	)
)
