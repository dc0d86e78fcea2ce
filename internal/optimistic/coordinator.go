package optimistic

import (
	"context"
	"time"
)

// Submit creates a record optimistically. The tentative record is visible in
// State before the remote call is issued. On success it is replaced in place by
// the confirmed record, which is returned; on failure it is removed and a
// *RemoteOperationError is returned after the removal has been applied.
func (c *Container[P]) Submit(ctx context.Context, payload P) (Record[P], error) {
	now := c.now()
	tentative := Record[P]{
		ID:        c.newID(),
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.apply(Add[P]{Record: tentative}, func() error {
		if c.inFlightLocked(tentative.ID) {
			return ErrPending
		}
		c.pending[tentative.ID] = struct{}{}
		return nil
	}); err != nil {
		return Record[P]{}, err
	}

	start := time.Now()
	confirmed, err := c.remote.Create(ctx, payload)
	if err == nil && confirmed.ID == "" {
		err = ErrMissingIdentifier
	}
	if err != nil {
		_ = c.apply(Remove[P]{ID: tentative.ID}, func() error {
			delete(c.pending, tentative.ID)
			return nil
		})
		err = &RemoteOperationError{Category: c.category, Op: OpCreate, ID: tentative.ID, Err: err}
		c.settled(OpCreate, err, time.Since(start))
		return Record[P]{}, err
	}

	_ = c.apply(Update[P]{ID: tentative.ID, Record: confirmed}, func() error {
		delete(c.pending, tentative.ID)
		return nil
	})
	c.settled(OpCreate, nil, time.Since(start))
	return confirmed, nil
}

// Edit replaces the payload of a confirmed record optimistically. On failure the
// previous record is put back.
func (c *Container[P]) Edit(ctx context.Context, id string, payload P) (Record[P], error) {
	var previous Record[P]
	if err := c.claim(id, func(state State[P]) (Action[P], error) {
		rec, ok := state.Get(id)
		if !ok {
			return nil, ErrRecordNotFound
		}
		previous = rec
		tentative := rec
		tentative.Payload = payload
		tentative.UpdatedAt = c.now()
		return Update[P]{ID: id, Record: tentative}, nil
	}); err != nil {
		return Record[P]{}, err
	}

	start := time.Now()
	confirmed, err := c.remote.Update(ctx, id, payload)
	if err == nil && confirmed.ID == "" {
		err = ErrMissingIdentifier
	}
	if err != nil {
		c.release(id, Update[P]{ID: id, Record: previous})
		err = &RemoteOperationError{Category: c.category, Op: OpUpdate, ID: id, Err: err}
		c.settled(OpUpdate, err, time.Since(start))
		return Record[P]{}, err
	}

	c.release(id, Update[P]{ID: id, Record: confirmed})
	c.settled(OpUpdate, nil, time.Since(start))
	return confirmed, nil
}

// Delete removes a confirmed record optimistically. On failure the record is
// restored next to the neighbours it had when the delete started, so records
// added or removed meanwhile do not shift it out of order.
func (c *Container[P]) Delete(ctx context.Context, id string) error {
	var (
		previous Record[P]
		before   []string
		after    []string
	)
	if err := c.claim(id, func(state State[P]) (Action[P], error) {
		rec, ok := state.Get(id)
		if !ok {
			return nil, ErrRecordNotFound
		}
		previous = rec
		before, after = neighbours[P](state, id)
		return Remove[P]{ID: id}, nil
	}); err != nil {
		return err
	}

	start := time.Now()
	if err := c.remote.Delete(ctx, id); err != nil {
		c.releasePlanned(id, func(state State[P]) Action[P] {
			return Insert[P]{Index: restoreIndex[P](state, before, after), Record: previous}
		})
		err = &RemoteOperationError{Category: c.category, Op: OpDelete, ID: id, Err: err}
		c.settled(OpDelete, err, time.Since(start))
		return err
	}

	c.release(id, nil)
	c.settled(OpDelete, nil, time.Since(start))
	return nil
}

// neighbours returns the IDs preceding id, nearest first, and those following it.
func neighbours[P any](state State[P], id string) (before, after []string) {
	pos := state.IndexOf(id)
	before = make([]string, 0, pos)
	for i := pos - 1; i >= 0; i-- {
		before = append(before, state.At(i).ID)
	}
	after = make([]string, 0, state.Len()-pos-1)
	for i := pos + 1; i < state.Len(); i++ {
		after = append(after, state.At(i).ID)
	}
	return before, after
}

// restoreIndex places a record right after its nearest surviving predecessor,
// else right before its nearest surviving successor, else at the end.
func restoreIndex[P any](state State[P], before, after []string) int {
	for _, id := range before {
		if i := state.IndexOf(id); i >= 0 {
			return i + 1
		}
	}
	for _, id := range after {
		if i := state.IndexOf(id); i >= 0 {
			return i
		}
	}
	return state.Len()
}

// claim marks id busy and applies the tentative action built by plan, atomically.
func (c *Container[P]) claim(id string, plan func(State[P]) (Action[P], error)) error {
	return c.applyPlanned(func(state State[P]) (Action[P], error) {
		if c.inFlightLocked(id) {
			return nil, ErrPending
		}
		action, err := plan(state)
		if err != nil {
			return nil, err
		}
		c.busy[id] = struct{}{}
		return action, nil
	})
}

// release clears the busy mark on id and applies settle, if any, atomically.
func (c *Container[P]) release(id string, settle Action[P]) {
	if settle == nil {
		c.mu.Lock()
		delete(c.busy, id)
		c.mu.Unlock()
		return
	}
	c.releasePlanned(id, func(State[P]) Action[P] { return settle })
}

// releasePlanned clears the busy mark on id and applies the action plan builds
// from the state current at that moment.
func (c *Container[P]) releasePlanned(id string, plan func(State[P]) Action[P]) {
	_ = c.applyPlanned(func(state State[P]) (Action[P], error) {
		delete(c.busy, id)
		return plan(state), nil
	})
}
