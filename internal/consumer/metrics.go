package consumer

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "consumer",
		Name:      "messages_processed_total",
		Help:      "Number of entry events handled and committed.",
	}, []string{"event_type", "category"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Number of handler errors grouped by event type.",
	}, []string{"event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Number of records dropped because they could not be decoded.",
	}, []string{"topic"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "workout_service",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Produce time of the most recent committed record per partition.",
	}, []string{"topic", "partition"})

	duplicateCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workout_service",
		Subsystem: "consumer",
		Name:      "duplicate_events_total",
		Help:      "Records skipped by the event log because their offset was already stored.",
	})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, lastMessageGauge, duplicateCounter)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.EventType, msg.Category).Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic, partitionLabel(msg.Partition)).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}

func recordDuplicate() {
	duplicateCounter.Inc()
}

func partitionLabel(partition int) string {
	return strconv.Itoa(partition)
}
