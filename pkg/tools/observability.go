package tools

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusOK      = "ok"
	statusError   = "error"
	statusInvalid = "invalid"
	statusTimeout = "timeout"
	statusPanic   = "panic"
	statusUnknown = "unknown"
)

// unknownToolLabel keeps model-invented names out of the label set.
const unknownToolLabel = "_unknown"

var (
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "travelbot",
		Subsystem: "tools",
		Name:      "calls_total",
		Help:      "Tool calls dispatched, by tool and outcome.",
	}, []string{"tool", "status"})

	toolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "travelbot",
		Subsystem: "tools",
		Name:      "call_duration_seconds",
		Help:      "Tool call latency.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"tool"})
)
