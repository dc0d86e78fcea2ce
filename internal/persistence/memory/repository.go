// Package memory provides an in-process entry store for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/caseydemo/workout-app/internal/domain"
	"github.com/caseydemo/workout-app/internal/observability"
)

const driverName = "memory"

// Repository stores entries in memory.
type Repository struct {
	mu      sync.RWMutex
	entries map[string]stored
	seq     int64
}

type stored struct {
	entry domain.Entry
	seq   int64
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{entries: make(map[string]stored)}
}

// Insert implements domain.Repository.
func (r *Repository) Insert(ctx context.Context, entry domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.entries[entry.ID] = stored{entry: clone(entry), seq: r.seq}
	observability.RecordEntryWritten(string(entry.Category), driverName, "insert", entry.UpdatedAt)
	return nil
}

// Get returns entity by ID.
func (r *Repository) Get(ctx context.Context, category domain.Category, id string) (*domain.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.entries[id]
	if !ok || s.entry.Category != category {
		return nil, nil
	}
	entry := clone(s.entry)
	return &entry, nil
}

// List returns the category's entries, newest first.
func (r *Repository) List(ctx context.Context, category domain.Category) ([]domain.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]stored, 0)
	for _, s := range r.entries {
		if s.entry.Category == category {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
			return a.entry.CreatedAt.After(b.entry.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]domain.Entry, 0, len(matched))
	for _, s := range matched {
		out = append(out, clone(s.entry))
	}
	return out, nil
}

// Update replaces the stored entry.
func (r *Repository) Update(ctx context.Context, entry domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.entries[entry.ID]
	if !ok || s.entry.Category != entry.Category {
		return domain.ErrEntryNotFound
	}
	s.entry = clone(entry)
	r.entries[entry.ID] = s
	observability.RecordEntryWritten(string(entry.Category), driverName, "update", entry.UpdatedAt)
	return nil
}

// Delete removes an entry.
func (r *Repository) Delete(ctx context.Context, category domain.Category, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.entries[id]
	if !ok || s.entry.Category != category {
		return domain.ErrEntryNotFound
	}
	delete(r.entries, id)
	observability.RecordEntryWritten(string(category), driverName, "delete", s.entry.UpdatedAt)
	return nil
}

func clone(entry domain.Entry) domain.Entry {
	entry.Payload = append([]byte(nil), entry.Payload...)
	return entry
}
