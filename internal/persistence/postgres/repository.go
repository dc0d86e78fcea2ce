package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caseydemo/workout-app/internal/domain"
	"github.com/caseydemo/workout-app/internal/events"
	"github.com/caseydemo/workout-app/internal/observability"
)

const driverName = "postgres"

// Repository provides Postgres-backed persistence for entries and their outbox events.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Insert persists the entry and records an entry.created event inside a single transaction.
func (r *Repository) Insert(ctx context.Context, entry domain.Entry) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const insertEntry = `INSERT INTO entries (entry_id, category, payload, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5)`
	if _, err = tx.Exec(ctx, insertEntry,
		entry.ID,
		string(entry.Category),
		[]byte(entry.Payload),
		entry.CreatedAt,
		entry.UpdatedAt,
	); err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, entry, events.TypeEntryCreated, events.EntryCreated{
		EntryID:    entry.ID,
		Category:   string(entry.Category),
		Payload:    entry.Payload,
		OccurredAt: entry.CreatedAt,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordEntryWritten(string(entry.Category), driverName, "insert", entry.UpdatedAt)
	return nil
}

// Get retrieves an entry by ID.
func (r *Repository) Get(ctx context.Context, category domain.Category, id string) (*domain.Entry, error) {
	const query = `SELECT entry_id, category, payload, created_at, updated_at
        FROM entries WHERE category=$1 AND entry_id=$2`

	entry, err := scanEntry(r.pool.QueryRow(ctx, query, string(category), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// List returns the category's entries ordered newest first.
func (r *Repository) List(ctx context.Context, category domain.Category) ([]domain.Entry, error) {
	const query = `SELECT entry_id, category, payload, created_at, updated_at
        FROM entries WHERE category=$1
        ORDER BY created_at DESC, seq DESC`

	rows, err := r.pool.Query(ctx, query, string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Update replaces the payload and records an entry.updated event.
func (r *Repository) Update(ctx context.Context, entry domain.Entry) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx,
		`UPDATE entries SET payload=$1, updated_at=$2 WHERE category=$3 AND entry_id=$4`,
		[]byte(entry.Payload), entry.UpdatedAt, string(entry.Category), entry.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = domain.ErrEntryNotFound
		return err
	}

	if err = r.insertOutbox(ctx, tx, entry, events.TypeEntryUpdated, events.EntryUpdated{
		EntryID:    entry.ID,
		Category:   string(entry.Category),
		Payload:    entry.Payload,
		OccurredAt: entry.UpdatedAt,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordEntryWritten(string(entry.Category), driverName, "update", entry.UpdatedAt)
	return nil
}

// Delete removes the entry and records an entry.deleted event.
func (r *Repository) Delete(ctx context.Context, category domain.Category, id string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `DELETE FROM entries WHERE category=$1 AND entry_id=$2`, string(category), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = domain.ErrEntryNotFound
		return err
	}

	occurred := r.now()
	entry := domain.Entry{ID: id, Category: category, UpdatedAt: occurred}
	if err = r.insertOutbox(ctx, tx, entry, events.TypeEntryDeleted, events.EntryDeleted{
		EntryID:    id,
		Category:   string(category),
		OccurredAt: occurred,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordEntryWritten(string(category), driverName, "delete", occurred)
	return nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, entry domain.Entry, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := EventCatalog[eventType]
	if !ok || meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, category, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		"entry",
		entry.ID,
		string(entry.Category),
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(entry),
		body,
		dedupeKey(entry, eventType),
	)
	return err
}

// dedupeKey is stable per logical change: one created and one deleted event per
// entry, one updated event per distinct update timestamp.
func dedupeKey(entry domain.Entry, eventType string) string {
	if eventType == events.TypeEntryUpdated {
		return fmt.Sprintf("%s:%s:%d", entry.ID, eventType, entry.UpdatedAt.UnixNano())
	}
	return fmt.Sprintf("%s:%s", entry.ID, eventType)
}

func scanEntry(row pgx.Row) (domain.Entry, error) {
	var (
		entry    domain.Entry
		category string
		payload  []byte
	)
	if err := row.Scan(&entry.ID, &category, &payload, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return domain.Entry{}, err
	}
	entry.Category = domain.Category(category)
	entry.Payload = json.RawMessage(payload)
	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	return entry, nil
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.Entry) string
}

// EntryEventsTopic carries every entry lifecycle event, keyed by entry ID so a
// single partition sees one entry's events in order.
const EntryEventsTopic = "entry_events"

func byEntryID(e domain.Entry) string { return e.ID }

// EventCatalog routes entry events to Kafka. Subjects follow the topic-record
// naming strategy so the three event shapes can share a topic.
var EventCatalog = map[string]EventMetadata{
	events.TypeEntryCreated: {
		Topic:          EntryEventsTopic,
		SchemaSubject:  EntryEventsTopic + "-EntryCreated",
		PartitionKeyFn: byEntryID,
	},
	events.TypeEntryUpdated: {
		Topic:          EntryEventsTopic,
		SchemaSubject:  EntryEventsTopic + "-EntryUpdated",
		PartitionKeyFn: byEntryID,
	},
	events.TypeEntryDeleted: {
		Topic:          EntryEventsTopic,
		SchemaSubject:  EntryEventsTopic + "-EntryDeleted",
		PartitionKeyFn: byEntryID,
	},
}
