package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workout_client",
		Subsystem: "optimistic",
		Name:      "operations_total",
		Help:      "Settled optimistic remote operations by category, operation and outcome.",
	}, []string{"category", "op", "outcome"})

	operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "workout_client",
		Subsystem: "optimistic",
		Name:      "operation_duration_seconds",
		Help:      "Time between issuing a remote call and reconciling its result.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"category", "op"})

	pendingGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "workout_client",
		Subsystem: "optimistic",
		Name:      "pending_records",
		Help:      "Tentative records awaiting confirmation per category.",
	}, []string{"category"})
)

func init() {
	prometheus.MustRegister(operationsCounter, operationDuration, pendingGauge)
}
