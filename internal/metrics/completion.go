package metrics

import "github.com/prometheus/client_golang/prometheus"

// Completion Prometheus metrics.
var (
	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "completion_requests_total",
			Help:      "Total number of completion attempts",
		},
		[]string{"model", "status"},
	)

	CompletionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "completion_request_duration_seconds",
			Help:      "Completion attempt duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	CompletionRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "completion_retries_total",
			Help:      "Total completion retries by reason",
		},
		[]string{"model", "reason"},
	)
)

var completionMetricsRegistered bool

// RegisterCompletionMetrics registers Prometheus completion metrics. Must be called once from main.
func RegisterCompletionMetrics() {
	if completionMetricsRegistered {
		return
	}
	prometheus.MustRegister(CompletionRequestsTotal)
	prometheus.MustRegister(CompletionRequestDuration)
	prometheus.MustRegister(CompletionRetriesTotal)
	completionMetricsRegistered = true
}
