package optimistic

import (
	"errors"
	"fmt"
)

var (
	// ErrPending is returned when an action targets a record whose remote mutation has not settled.
	ErrPending = errors.New("record has a mutation in flight")
	// ErrRecordNotFound is returned when Edit or Delete targets an unknown identifier.
	ErrRecordNotFound = errors.New("record not found")
	// ErrAlreadySeeded is returned when a consumer dispatches Set after the container was mounted.
	ErrAlreadySeeded = errors.New("container already seeded")
	// ErrMissingIdentifier is returned when the remote store confirms a record without an identifier.
	ErrMissingIdentifier = errors.New("remote record has no identifier")
	// ErrTentativeID is returned when a consumer dispatches a record carrying a tentative identifier.
	ErrTentativeID = errors.New("tentative identifiers are reserved for Submit")
)

// Op names a remote operation.
type Op string

const (
	OpLoad   Op = "load"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// RemoteOperationError reports a failed remote call. By the time it is returned
// the optimistic change has already been rolled back.
type RemoteOperationError struct {
	Category string
	Op       Op
	ID       string
	Err      error
}

func (e *RemoteOperationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Category, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Category, e.Op, e.ID, e.Err)
}

func (e *RemoteOperationError) Unwrap() error { return e.Err }

// MissingProviderError signals that a container was requested from a context
// that no Provide call for that category produced. It is a programming error.
type MissingProviderError struct {
	Category string
}

func (e *MissingProviderError) Error() string {
	return fmt.Sprintf("optimistic: no %s container provided in context", e.Category)
}
