// Package optimistic keeps a category's records in memory and applies mutations
// locally before the remote store confirms them.
//
// A Container owns one ordered, newest-first list of records. Consumers read it
// through State, and change it either with Dispatch (local-only actions) or with
// Submit, Edit and Delete, which apply a tentative change immediately, call the
// Remote, and then reconcile or roll back.
package optimistic

import (
	"context"
	"strings"
	"time"

	"go.jetify.com/typeid"
)

// TentativePrefix marks identifiers minted locally before the remote store assigns one.
const TentativePrefix = "tmp"

// Record is one logged entry for a category.
type Record[P any] struct {
	ID        string    `json:"id"`
	Payload   P         `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tentative reports whether the record still carries a locally minted identifier.
func (r Record[P]) Tentative() bool {
	return IsTentative(r.ID)
}

// IsTentative reports whether id was minted by NewTentativeID.
func IsTentative(id string) bool {
	return strings.HasPrefix(id, TentativePrefix+"_")
}

// NewTentativeID returns a session-unique identifier of the form tmp_<suffix>.
func NewTentativeID() string {
	id, err := typeid.WithPrefix(TentativePrefix)
	if err != nil {
		panic(err)
	}
	return id.String()
}

// Loader supplies the records persisted for a category.
type Loader[P any] interface {
	List(ctx context.Context) ([]Record[P], error)
}

// Remote is the persistence contract a Container writes through.
type Remote[P any] interface {
	Loader[P]
	Create(ctx context.Context, payload P) (Record[P], error)
	Update(ctx context.Context, id string, payload P) (Record[P], error)
	Delete(ctx context.Context, id string) error
}
