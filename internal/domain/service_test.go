package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateEntryCanonicalizesPayload(t *testing.T) {
	repo := newMockRepo()
	service := NewService(repo)
	fixed := time.Date(2025, time.October, 27, 20, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixed }

	entry, err := service.CreateEntry(context.Background(), CategoryCardio,
		json.RawMessage(`{"activity_type":" Running ","duration_min":30,"distance_km":6}`))
	require.NoError(t, err)

	require.NotEmpty(t, entry.ID)
	require.Equal(t, CategoryCardio, entry.Category)
	require.Equal(t, fixed, entry.CreatedAt)
	require.Equal(t, fixed, entry.UpdatedAt)
	require.JSONEq(t, `{"activity_type":"running","duration_min":30,"distance_km":6,"pace_min_per_km":5}`, string(entry.Payload))
	require.Contains(t, repo.entries, entry.ID)
}

func TestCreateEntryRejectsInvalidPayloads(t *testing.T) {
	service := NewService(newMockRepo())

	cases := map[string]struct {
		category Category
		payload  string
		field    string
	}{
		"missing type":     {CategoryCardio, `{"duration_min":30}`, "activity_type"},
		"zero duration":    {CategoryCardio, `{"activity_type":"run","duration_min":0}`, "duration_min"},
		"negative weight":  {CategoryStrength, `{"exercise":"squat","sets":3,"reps":5,"weight_kg":-1}`, "weight_kg"},
		"zero sets":        {CategoryStrength, `{"exercise":"squat","sets":0,"reps":5}`, "sets"},
		"unknown meal":     {CategoryNutrition, `{"meal":"brunch","food":"eggs"}`, "meal"},
		"unknown field":    {CategoryNutrition, `{"meal":"lunch","food":"rice","sugar":3}`, ""},
		"empty payload":    {CategoryCardio, ``, ""},
		"malformed json":   {CategoryStrength, `{"exercise":`, ""},
		"negative protein": {CategoryNutrition, `{"meal":"lunch","food":"rice","protein_g":-2}`, "macros"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := service.CreateEntry(context.Background(), tc.category, json.RawMessage(tc.payload))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestCreateEntryRejectsUnknownCategory(t *testing.T) {
	service := NewService(newMockRepo())
	_, err := service.CreateEntry(context.Background(), Category("yoga"), json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestUpdateEntryKeepsCreatedAt(t *testing.T) {
	repo := newMockRepo()
	service := NewService(repo)
	created := time.Date(2025, time.October, 1, 8, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return created }

	entry, err := service.CreateEntry(context.Background(), CategoryStrength,
		json.RawMessage(`{"exercise":"Deadlift","sets":3,"reps":5,"weight_kg":100}`))
	require.NoError(t, err)

	later := created.Add(time.Hour)
	service.now = func() time.Time { return later }
	updated, err := service.UpdateEntry(context.Background(), CategoryStrength, entry.ID,
		json.RawMessage(`{"exercise":"Deadlift","sets":5,"reps":5,"weight_kg":100}`))
	require.NoError(t, err)

	require.Equal(t, created, updated.CreatedAt)
	require.Equal(t, later, updated.UpdatedAt)
	require.JSONEq(t, `{"exercise":"Deadlift","sets":5,"reps":5,"weight_kg":100,"volume_kg":2500}`, string(updated.Payload))
}

func TestGetAndUpdateMissingEntry(t *testing.T) {
	service := NewService(newMockRepo())

	_, err := service.GetEntry(context.Background(), CategoryCardio, "nope")
	require.ErrorIs(t, err, ErrEntryNotFound)

	_, err = service.UpdateEntry(context.Background(), CategoryCardio, "nope",
		json.RawMessage(`{"activity_type":"run","duration_min":10}`))
	require.ErrorIs(t, err, ErrEntryNotFound)

	require.ErrorIs(t, service.DeleteEntry(context.Background(), CategoryCardio, "nope"), ErrEntryNotFound)
}

func TestListEntriesPassesThroughRepositoryErrors(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("db down")
	service := NewService(repo)

	_, err := service.ListEntries(context.Background(), CategoryNutrition)
	require.EqualError(t, err, "db down")

	_, err = service.ListEntries(context.Background(), Category("yoga"))
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Cardio ")
	require.NoError(t, err)
	require.Equal(t, CategoryCardio, c)

	_, err = ParseCategory("pilates")
	require.ErrorIs(t, err, ErrUnknownCategory)
}

type mockRepo struct {
	entries map[string]Entry
	err     error
}

func newMockRepo() *mockRepo {
	return &mockRepo{entries: make(map[string]Entry)}
}

func (m *mockRepo) Insert(ctx context.Context, entry Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries[entry.ID] = entry
	return nil
}

func (m *mockRepo) Get(ctx context.Context, category Category, id string) (*Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	entry, ok := m.entries[id]
	if !ok || entry.Category != category {
		return nil, nil
	}
	return &entry, nil
}

func (m *mockRepo) List(ctx context.Context, category Category) ([]Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		if entry.Category == category {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *mockRepo) Update(ctx context.Context, entry Entry) error {
	if _, ok := m.entries[entry.ID]; !ok {
		return ErrEntryNotFound
	}
	m.entries[entry.ID] = entry
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, category Category, id string) error {
	entry, ok := m.entries[id]
	if !ok || entry.Category != category {
		return ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}
