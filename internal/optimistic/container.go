package optimistic

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Listener observes every applied action together with the state it produced.
// Listeners run in apply order and must not call Dispatch, Submit, Edit or Delete
// synchronously.
type Listener[P any] func(Action[P], State[P])

// Observer is notified when a remote operation settles.
type Observer interface {
	Settled(category string, op Op, err error, elapsed time.Duration)
}

// Option configures a Container.
type Option[P any] func(*Container[P])

// WithIDGenerator overrides how tentative identifiers are minted.
func WithIDGenerator[P any](fn func() string) Option[P] {
	return func(c *Container[P]) {
		c.newID = fn
	}
}

// WithClock overrides the time source used to stamp tentative records.
func WithClock[P any](fn func() time.Time) Option[P] {
	return func(c *Container[P]) {
		c.now = fn
	}
}

// WithObserver registers an observer for settled remote operations.
func WithObserver[P any](o Observer) Option[P] {
	return func(c *Container[P]) {
		c.observer = o
	}
}

// Container owns the record list of one category.
type Container[P any] struct {
	category string
	remote   Remote[P]
	newID    func() string
	now      func() time.Time
	observer Observer

	// emitMu serialises apply+notify so listeners see actions in apply order.
	emitMu sync.Mutex

	mu        sync.Mutex
	state     State[P]
	pending   map[string]struct{}
	busy      map[string]struct{}
	listeners map[int]Listener[P]
	nextLID   int
}

// New constructs a container seeded with initial. The seed is applied once and
// never repeated.
func New[P any](category string, remote Remote[P], initial []Record[P], opts ...Option[P]) *Container[P] {
	c := &Container[P]{
		category:  category,
		remote:    remote,
		newID:     NewTentativeID,
		now:       func() time.Time { return time.Now().UTC() },
		pending:   make(map[string]struct{}),
		busy:      make(map[string]struct{}),
		listeners: make(map[int]Listener[P]),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = Reduce(State[P]{}, Action[P](Set[P]{Records: initial}))
	return c
}

// Mount loads the initial records through remote and constructs the container.
func Mount[P any](ctx context.Context, category string, remote Remote[P], opts ...Option[P]) (*Container[P], error) {
	start := time.Now()
	records, err := remote.List(ctx)
	if err != nil {
		err = &RemoteOperationError{Category: category, Op: OpLoad, Err: err}
	}
	c := New(category, remote, records, opts...)
	c.settled(OpLoad, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Category returns the category this container serves.
func (c *Container[P]) Category() string { return c.category }

// State returns the current snapshot.
func (c *Container[P]) State() State[P] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the tentative identifiers awaiting remote confirmation, sorted.
func (c *Container[P]) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.pending))
	for id := range c.pending {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Subscribe registers l and returns a func that removes it.
func (c *Container[P]) Subscribe(l Listener[P]) func() {
	c.mu.Lock()
	id := c.nextLID
	c.nextLID++
	c.listeners[id] = l
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Dispatch applies a consumer-issued action. Set is refused once the container
// is seeded, actions touching a record with an unsettled remote call are
// refused with ErrPending, and records carrying a tentative identifier are
// refused with ErrTentativeID since only Submit may mint them.
func (c *Container[P]) Dispatch(a Action[P]) error {
	if _, ok := a.(Set[P]); ok {
		return ErrAlreadySeeded
	}
	if tentativeRecord[P](a) {
		return ErrTentativeID
	}
	return c.apply(a, func() error {
		if c.inFlightLocked(target[P](a)) {
			return ErrPending
		}
		if u, ok := a.(Update[P]); ok && c.inFlightLocked(u.Record.ID) {
			return ErrPending
		}
		return nil
	})
}

// apply runs guard and, if it passes, reduces a into the state and notifies
// listeners. guard runs with c.mu held so it may read and write the pending and
// busy sets atomically with the state change.
func (c *Container[P]) apply(a Action[P], guard func() error) error {
	return c.applyPlanned(func(State[P]) (Action[P], error) {
		if guard != nil {
			if err := guard(); err != nil {
				return nil, err
			}
		}
		return a, nil
	})
}

// applyPlanned builds the action from the current state with c.mu held, applies
// it and then notifies listeners in registration order.
func (c *Container[P]) applyPlanned(plan func(State[P]) (Action[P], error)) error {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	a, err := plan(c.state)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	next := Reduce(c.state, a)
	c.state = next
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener[P], 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, c.listeners[id])
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(a, next)
	}
	return nil
}

func (c *Container[P]) inFlightLocked(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := c.pending[id]; ok {
		return true
	}
	_, ok := c.busy[id]
	return ok
}

func (c *Container[P]) settled(op Op, err error, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.Settled(c.category, op, err, elapsed)
	}
}
