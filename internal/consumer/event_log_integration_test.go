//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caseydemo/workout-app/internal/logging"
	"github.com/caseydemo/workout-app/internal/testsupport"
)

func TestEventLogHandlerStoresEventOnce(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	handler := NewEventLogHandler(pool, logging.Discard())

	payload := json.RawMessage(`{"entry_id":"3f1c","category":"cardio","payload":{"activity":"run"}}`)
	msg := Message{
		EventType:     "entry.created",
		Category:      "cardio",
		SchemaID:      42,
		SchemaSubject: "entry_events-EntryCreated",
		Topic:         "entry_events",
		Partition:     0,
		Offset:        5,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
	}

	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM entry_event_log`).Scan(&count))
	require.Equal(t, 1, count)

	var (
		entryID       string
		storedPayload []byte
	)
	require.NoError(t, pool.QueryRow(ctx, `SELECT entry_id, payload FROM entry_event_log LIMIT 1`).Scan(&entryID, &storedPayload))
	require.Equal(t, "3f1c", entryID)
	require.JSONEq(t, string(payload), string(storedPayload))
}

func TestEventLogHandlerRejectsPayloadWithoutEntryID(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	handler := NewEventLogHandler(pool, logging.Discard())
	err := handler.Handle(ctx, Message{EventType: "entry.deleted", Topic: "entry_events", Payload: json.RawMessage(`{}`)})
	require.Error(t, err)
}
