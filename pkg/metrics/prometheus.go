// Package metrics exposes Prometheus counters/gauges for the pieces of
// spec.md's system that matter once a selector and a session pipeline
// are doing the work: request volume/latency/errors, a backend's
// active-connection count, and whether a selector currently excludes a
// backend. Trimmed from the teacher's pkg/metrics/prometheus.go, which
// also tracked a connection pool, circuit breaker, TLS handshakes, and
// rate limiting — none of which exist in this design (DESIGN.md).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lb_requests_total",
			Help: "Total number of requests forwarded, by backend and status",
		},
		[]string{"backend", "method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lb_request_duration_seconds",
			Help:    "Request/response cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "method"},
	)

	requestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lb_request_errors_total",
			Help: "Total number of request errors, by backend and error type",
		},
		[]string{"backend", "error_type"},
	)

	backendConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lb_backend_connections_active",
			Help: "Number of sessions currently open to a backend",
		},
		[]string{"backend"},
	)

	backendExcluded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lb_backend_excluded",
			Help: "1 if a selector has excluded this backend (refused a connect), else 0",
		},
		[]string{"backend"},
	)

	selectorSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lb_selector_backend_count",
			Help: "Number of backends currently known to the selector",
		},
		[]string{"algorithm"},
	)
)

// RecordRequest records one completed request/response cycle.
func RecordRequest(backend, method, status string, duration time.Duration) {
	requestsTotal.WithLabelValues(backend, method, status).Inc()
	requestDuration.WithLabelValues(backend, method).Observe(duration.Seconds())
}

// RecordRequestError records a request that ended in error rather than
// a forwarded response.
func RecordRequestError(backend, errorType string) {
	requestErrors.WithLabelValues(backend, errorType).Inc()
}

// SetBackendConnectionsActive sets the active-session gauge for backend.
func SetBackendConnectionsActive(backend string, count int) {
	backendConnectionsActive.WithLabelValues(backend).Set(float64(count))
}

// SetBackendExcluded records whether a selector has excluded backend.
func SetBackendExcluded(backend string, excluded bool) {
	v := 0.0
	if excluded {
		v = 1.0
	}
	backendExcluded.WithLabelValues(backend).Set(v)
}

// SetSelectorSize records how many backends a selector for algorithm
// currently holds, e.g. after Configure or ExcludeBackend.
func SetSelectorSize(algorithm string, count int) {
	selectorSize.WithLabelValues(algorithm).Set(float64(count))
}

// Handler returns the HTTP handler serving the Prometheus exposition
// format, mounted by pkg/admin at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
