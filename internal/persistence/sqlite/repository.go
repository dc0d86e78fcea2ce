// Package sqlite persists entries in a single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/caseydemo/workout-app/internal/domain"
	"github.com/caseydemo/workout-app/internal/observability"
)

const driverName = "sqlite"

const schema = `CREATE TABLE IF NOT EXISTS entries (
	entry_id   TEXT PRIMARY KEY,
	category   TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_category_created ON entries (category, created_at DESC);`

// Repository is a domain.Repository backed by SQLite.
type Repository struct {
	db *sql.DB
}

// Open creates (if needed) and opens the database at path.
func Open(path string) (*Repository, error) {
	if path == "" {
		path = "workout.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps writes serialised without SQLITE_BUSY retries
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create entries table: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Insert implements domain.Repository.
func (r *Repository) Insert(ctx context.Context, entry domain.Entry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO entries (entry_id, category, payload, created_at, updated_at) VALUES (?,?,?,?,?)`,
		entry.ID, string(entry.Category), string(entry.Payload), entry.CreatedAt.UnixNano(), entry.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	observability.RecordEntryWritten(string(entry.Category), driverName, "insert", entry.UpdatedAt)
	return nil
}

// Get implements domain.Repository.
func (r *Repository) Get(ctx context.Context, category domain.Category, id string) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT entry_id, category, payload, created_at, updated_at FROM entries WHERE category = ? AND entry_id = ?`,
		string(category), id,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select entry: %w", err)
	}
	return &entry, nil
}

// List implements domain.Repository.
func (r *Repository) List(ctx context.Context, category domain.Category) ([]domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entry_id, category, payload, created_at, updated_at FROM entries
		WHERE category = ? ORDER BY created_at DESC, rowid DESC`,
		string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]domain.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update implements domain.Repository.
func (r *Repository) Update(ctx context.Context, entry domain.Entry) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries SET payload = ?, updated_at = ? WHERE category = ? AND entry_id = ?`,
		string(entry.Payload), entry.UpdatedAt.UnixNano(), string(entry.Category), entry.ID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if err := expectOne(res); err != nil {
		return err
	}
	observability.RecordEntryWritten(string(entry.Category), driverName, "update", entry.UpdatedAt)
	return nil
}

// Delete implements domain.Repository.
func (r *Repository) Delete(ctx context.Context, category domain.Category, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE category = ? AND entry_id = ?`, string(category), id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if err := expectOne(res); err != nil {
		return err
	}
	observability.RecordEntryWritten(string(category), driverName, "delete", time.Now().UTC())
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (domain.Entry, error) {
	var (
		entry              domain.Entry
		category, payload  string
		createdAt, updated int64
	)
	if err := s.Scan(&entry.ID, &category, &payload, &createdAt, &updated); err != nil {
		return domain.Entry{}, err
	}
	entry.Category = domain.Category(category)
	entry.Payload = []byte(payload)
	entry.CreatedAt = time.Unix(0, createdAt).UTC()
	entry.UpdatedAt = time.Unix(0, updated).UTC()
	return entry, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}
