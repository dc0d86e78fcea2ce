// Package events defines the entry change payloads published through the outbox.
package events

import (
	"encoding/json"
	"time"
)

// Event type names recorded in the outbox and carried in the Kafka event_type header.
const (
	TypeEntryCreated = "entry.created"
	TypeEntryUpdated = "entry.updated"
	TypeEntryDeleted = "entry.deleted"
)

// EntryCreated is emitted when a new entry is stored.
type EntryCreated struct {
	EntryID    string          `json:"entry_id"`
	Category   string          `json:"category"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EntryUpdated is emitted when an entry's payload is replaced.
type EntryUpdated struct {
	EntryID    string          `json:"entry_id"`
	Category   string          `json:"category"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EntryDeleted is emitted when an entry is removed.
type EntryDeleted struct {
	EntryID    string    `json:"entry_id"`
	Category   string    `json:"category"`
	OccurredAt time.Time `json:"occurred_at"`
}
