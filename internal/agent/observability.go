package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeReply      = "reply"
	outcomeBestEffort = "best_effort"
	outcomeFailure    = "failure"
	outcomeCancelled  = "cancelled"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "travelbot",
		Subsystem: "agent",
		Name:      "turns_total",
		Help:      "User turns handled, by outcome.",
	}, []string{"outcome"})

	turnRounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "travelbot",
		Subsystem: "agent",
		Name:      "turn_rounds",
		Help:      "Inference rounds needed to answer one user turn.",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10, 16},
	})
)
