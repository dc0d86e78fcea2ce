// Package domain defines the business logic for the tracker's entry store.
package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEntryNotFound is returned when an entry cannot be located.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrUnknownCategory is returned for category names outside Categories().
	ErrUnknownCategory = errors.New("unknown category")
)

// ValidationError describes a payload rejected by validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + " " + e.Reason
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Entry is the stored document for one logged record.
type Entry struct {
	ID        string
	Category  Category
	Payload   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository captures document-store operations.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	// Get returns nil, nil when the entry does not exist.
	Get(ctx context.Context, category Category, id string) (*Entry, error)
	// List returns entries newest first.
	List(ctx context.Context, category Category) ([]Entry, error)
	Update(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, category Category, id string) error
}

// Service orchestrates entry workflows.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// CreateEntry validates the payload, assigns an identifier and timestamps, and stores it.
func (s *Service) CreateEntry(ctx context.Context, category Category, payload json.RawMessage) (*Entry, error) {
	canonical, err := Canonicalize(category, payload)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry := Entry{
		ID:        uuid.NewString(),
		Category:  category,
		Payload:   canonical,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetEntry fetches by ID.
func (s *Service) GetEntry(ctx context.Context, category Category, id string) (*Entry, error) {
	if _, err := ParseCategory(string(category)); err != nil {
		return nil, err
	}
	entry, err := s.repo.Get(ctx, category, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

// ListEntries returns every entry of a category, newest first.
func (s *Service) ListEntries(ctx context.Context, category Category) ([]Entry, error) {
	if _, err := ParseCategory(string(category)); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, category)
}

// UpdateEntry replaces the payload of an existing entry.
func (s *Service) UpdateEntry(ctx context.Context, category Category, id string, payload json.RawMessage) (*Entry, error) {
	canonical, err := Canonicalize(category, payload)
	if err != nil {
		return nil, err
	}

	existing, err := s.GetEntry(ctx, category, id)
	if err != nil {
		return nil, err
	}

	existing.Payload = canonical
	existing.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeleteEntry removes an entry.
func (s *Service) DeleteEntry(ctx context.Context, category Category, id string) error {
	if _, err := ParseCategory(string(category)); err != nil {
		return err
	}
	return s.repo.Delete(ctx, category, id)
}

type payload[P any] interface {
	Validate() error
	Normalize() P
}

// Canonicalize strictly decodes raw as the category's payload type, validates
// it, derives computed fields and re-encodes it.
func Canonicalize(category Category, raw json.RawMessage) (json.RawMessage, error) {
	switch category {
	case CategoryCardio:
		return canonicalize[Cardio](raw)
	case CategoryStrength:
		return canonicalize[Strength](raw)
	case CategoryNutrition:
		return canonicalize[Nutrition](raw)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
}

func canonicalize[P payload[P]](raw json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ValidationError{Reason: "payload is required"}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var value P
	if err := dec.Decode(&value); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("unable to parse payload: %v", err)}
	}
	if err := value.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(value.Normalize())
}
