// Package observability holds service-wide Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	entryPersistGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "workout_service",
		Subsystem: "persistence",
		Name:      "last_entry_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent entry write per category.",
	}, []string{"category"})
	entryWritesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "persistence",
		Name:      "entry_writes_total",
		Help:      "Number of entry writes grouped by category, store driver and operation.",
	}, []string{"category", "driver", "op"})
)

func init() {
	prometheus.MustRegister(entryPersistGauge, entryWritesCounter)
}

// RecordEntryWritten updates the persistence watermark and write counter.
func RecordEntryWritten(category, driver, op string, ts time.Time) {
	entryWritesCounter.WithLabelValues(category, driver, op).Inc()
	if ts.IsZero() {
		return
	}
	entryPersistGauge.WithLabelValues(category).Set(float64(ts.Unix()))
}
