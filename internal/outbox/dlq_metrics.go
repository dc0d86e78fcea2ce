package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dlqProcessedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "dlq",
		Name:      "messages_processed_total",
		Help:      "Number of DLQ entries successfully replayed.",
	}, []string{"topic", "event_type"})

	dlqRequeuedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "dlq",
		Name:      "messages_requeued_total",
		Help:      "Number of DLQ entries reinserted into the primary outbox.",
	}, []string{"topic", "event_type"})

	dlqQuarantinedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "dlq",
		Name:      "messages_quarantined_total",
		Help:      "Number of DLQ entries quarantined after exhausting retries.",
	}, []string{"topic", "event_type"})

	dlqRetryCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "dlq",
		Name:      "retry_scheduled_total",
		Help:      "Number of times a DLQ entry was scheduled for a future retry.",
	}, []string{"topic", "event_type"})

	dlqBacklogGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workout_service",
		Subsystem: "dlq",
		Name:      "queued_messages",
		Help:      "Entries still eligible for retry.",
	})

	dlqQuarantineGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workout_service",
		Subsystem: "dlq",
		Name:      "quarantined_messages",
		Help:      "Entries parked after exhausting retries, awaiting manual inspection.",
	})
)

func init() {
	prometheus.MustRegister(dlqProcessedCounter, dlqRequeuedCounter, dlqQuarantinedCounter, dlqRetryCounter, dlqBacklogGauge, dlqQuarantineGauge)
}

func recordDLQProcessed(entry dlqEntry) {
	dlqProcessedCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
}

func recordDLQRequeued(entry dlqEntry) {
	dlqRequeuedCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
}

func recordDLQQuarantined(entry dlqEntry) {
	dlqQuarantinedCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
}

func recordDLQRetry(entry dlqEntry) {
	dlqRetryCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
}

func updateBacklogGauge(ctx context.Context, pool *pgxpool.Pool) {
	row := pool.QueryRow(ctx, `SELECT
            COUNT(*) FILTER (WHERE quarantined_at IS NULL),
            COUNT(*) FILTER (WHERE quarantined_at IS NOT NULL)
        FROM outbox_dlq`)
	var queued, quarantined int
	if err := row.Scan(&queued, &quarantined); err != nil {
		return
	}
	dlqBacklogGauge.Set(float64(queued))
	dlqQuarantineGauge.Set(float64(quarantined))
}
