package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// inferenceDuration measures chat completion calls, retries included.
	//
	// Labels:
	//   - status: "success" or "error"
	inferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "travelbot",
			Subsystem: "llm",
			Name:      "inference_duration_seconds",
			Help:      "Duration of inference calls in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	// inferenceTokens counts tokens reported by the provider.
	//
	// Labels:
	//   - direction: "input" or "output"
	inferenceTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travelbot",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total tokens consumed by inference calls.",
		},
		[]string{"direction"},
	)
)
