package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gamedex",
			Name:      "search_requests_total",
			Help:      "Total number of search requests by outcome",
		},
		[]string{"outcome"}, // "ok" / "degraded" / "cached" / "error"
	)

	SearchRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gamedex",
			Name:      "search_rejected_total",
			Help:      "Queries rejected before retrieval",
		},
		[]string{"reason"}, // "malicious" / "invalid"
	)

	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gamedex",
			Name:      "search_stage_duration_seconds",
			Help:      "Duration of individual search pipeline stages",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"}, // "lexical" / "vector" / "fusion"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search pipeline metrics.
// Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRejectedTotal)
	prometheus.MustRegister(SearchStageDuration)
	searchMetricsRegistered = true
}
