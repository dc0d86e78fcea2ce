package outbox

import "github.com/caseydemo/workout-app/internal/events"

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeEntryCreated: {Schema: entryCreatedSchema},
	events.TypeEntryUpdated: {Schema: entryUpdatedSchema},
	events.TypeEntryDeleted: {Schema: entryDeletedSchema},
}

const entryCreatedSchema = `{
  "type": "object",
  "title": "EntryCreated",
  "properties": {
    "entry_id": {"type": "string"},
    "category": {"type": "string", "enum": ["cardio", "strength", "nutrition"]},
    "payload": {"type": "object"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["entry_id", "category", "payload", "occurred_at"],
  "additionalProperties": false
}`

const entryUpdatedSchema = `{
  "type": "object",
  "title": "EntryUpdated",
  "properties": {
    "entry_id": {"type": "string"},
    "category": {"type": "string", "enum": ["cardio", "strength", "nutrition"]},
    "payload": {"type": "object"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["entry_id", "category", "payload", "occurred_at"],
  "additionalProperties": false
}`

const entryDeletedSchema = `{
  "type": "object",
  "title": "EntryDeleted",
  "properties": {
    "entry_id": {"type": "string"},
    "category": {"type": "string", "enum": ["cardio", "strength", "nutrition"]},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["entry_id", "category", "occurred_at"],
  "additionalProperties": false
}`
