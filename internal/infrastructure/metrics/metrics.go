// Package metrics provides Prometheus metrics for the kiosk gateway.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "kiosk"
	subsystem = "gateway"
)

var (
	// RequestsTotal counts HTTP requests served.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// ActiveSessions tracks capture sessions currently held in memory.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_active_sessions",
			Help:      "Number of capture sessions currently open",
		},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_sessions_created_total",
			Help:      "Total number of capture sessions created",
		},
	)

	SessionsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_sessions_deleted_total",
			Help:      "Total number of capture sessions deleted",
		},
	)

	// SessionsReaped counts sessions removed by the idle sweeper.
	SessionsReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_sessions_reaped_total",
			Help:      "Total number of idle capture sessions removed",
		},
	)

	// StateTransitions tracks capture state changes.
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_state_transitions_total",
			Help:      "Total number of capture state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	// BackendRequests counts calls to the recognition and video backends.
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of backend requests",
		},
		[]string{"api", "endpoint", "status"},
	)

	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"api", "endpoint"},
	)

	// VideoJobs exposes job totals per status as last seen by the job watcher.
	VideoJobs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "video_jobs",
			Help:      "Number of video jobs per status",
		},
		[]string{"status"},
	)

	JobWatchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_job_watch_errors_total",
			Help:      "Total number of failed job watcher polls",
		},
	)
)

// RecordRequest records one served HTTP request.
func RecordRequest(method, endpoint, status string, seconds float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(seconds)
}

// RecordSessionCreated increments session creation metrics.
func RecordSessionCreated() {
	SessionsCreated.Inc()
	ActiveSessions.Inc()
}

// RecordSessionDeleted increments session deletion metrics.
func RecordSessionDeleted() {
	SessionsDeleted.Inc()
	ActiveSessions.Dec()
}

func RecordSessionsReaped(n int) {
	SessionsReaped.Add(float64(n))
}

// RecordStateTransition records a capture state change.
func RecordStateTransition(fromState, toState string) {
	StateTransitions.WithLabelValues(fromState, toState).Inc()
}

// RecordBackendRequest records a backend call. status 0 means no response arrived.
func RecordBackendRequest(api, endpoint string, status int, seconds float64) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	BackendRequests.WithLabelValues(api, endpoint, code).Inc()
	BackendDuration.WithLabelValues(api, endpoint).Observe(seconds)
}

// SetVideoJobs publishes the latest total for a job status.
func SetVideoJobs(status string, total int) {
	VideoJobs.WithLabelValues(status).Set(float64(total))
}

func RecordJobWatchError() {
	JobWatchErrors.Inc()
}
