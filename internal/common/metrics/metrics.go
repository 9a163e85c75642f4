// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExternalCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_calls_total",
			Help: "Total outbound calls by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "external_call_duration_seconds",
			Help: "Duration of outbound calls in seconds",
		},
		[]string{"service"},
	)

	RateLimiterWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "rate_limiter_wait_seconds",
			Help: "Time spent waiting for a rate-limiter token",
		},
	)

	GenerationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_fallbacks_total",
			Help: "Provider fallbacks by capability and failed provider",
		},
		[]string{"capability", "provider"},
	)

	PipelineItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_items_processed_total",
			Help: "Pipeline item outcomes by operation and status",
		},
		[]string{"operation", "status"},
	)

	ReviewTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_transitions_total",
			Help: "Review workflow transitions by target status and outcome",
		},
		[]string{"status", "outcome"},
	)
)
