package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_http_requests_total",
		Help: "Total number of HTTP requests by endpoint and outcome",
	}, []string{"endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// Stored procedure metrics
	procedureCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_procedure_calls_total",
		Help: "Total stored procedure invocations by procedure and outcome",
	}, []string{"procedure", "outcome"})

	procedureDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_procedure_duration_seconds",
		Help:    "Duration of stored procedure calls in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"procedure"})

	// Notification outcome metrics
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_notifications_total",
		Help: "Payment notifications by outcome (credited, duplicate, failed)",
	}, []string{"outcome"})

	// Upstream bank network metrics
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_upstream_requests_total",
		Help: "Requests to the bank network by operation and outcome",
	}, []string{"operation", "outcome"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_upstream_request_duration_seconds",
		Help:    "Duration of upstream bank requests in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})
)

// ObserveRequest records one handled HTTP request.
func ObserveRequest(endpoint, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveProcedure records one stored procedure invocation.
func ObserveProcedure(procedure string, success bool, duration time.Duration) {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	procedureCallsTotal.WithLabelValues(procedure, outcome).Inc()
	procedureDuration.WithLabelValues(procedure).Observe(duration.Seconds())
}

// CountNotification records a payment notification outcome.
func CountNotification(outcome string) {
	notificationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records one request to the bank network.
func ObserveUpstream(operation string, success bool, duration time.Duration) {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	upstreamRequestsTotal.WithLabelValues(operation, outcome).Inc()
	upstreamRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
