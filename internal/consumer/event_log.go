package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventLogHandler appends consumed entry events to entry_event_log. Redelivered
// records are ignored because (topic, partition, offset) is unique.
type EventLogHandler struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewEventLogHandler constructs a handler backed by the provided pool.
func NewEventLogHandler(pool *pgxpool.Pool, logger *slog.Logger) *EventLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogHandler{pool: pool, logger: logger}
}

// Handle stores the event.
func (h *EventLogHandler) Handle(ctx context.Context, msg Message) error {
	entryID, err := msg.EntryID()
	if err != nil {
		return fmt.Errorf("offset %d: %w", msg.Offset, err)
	}

	tag, err := h.pool.Exec(ctx,
		`INSERT INTO entry_event_log (event_type, category, entry_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType,
		msg.Category,
		entryID,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		[]byte(msg.Payload),
		msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		recordDuplicate()
		h.logger.Debug("event already logged", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
	return nil
}
