package optimistic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errNetwork = errors.New("network unreachable")

type reply struct {
	rec Record[workout]
	err error
}

// stubRemote scripts remote outcomes. Calls with a gate registered for their key
// block until the test releases them; other calls use the plain funcs.
type stubRemote struct {
	mu      sync.Mutex
	list    []Record[workout]
	listErr error
	started chan string
	gates   map[string]chan reply

	creates []workout
	updates []string
	deletes []string

	updateErr error
	deleteErr error
}

func newStubRemote() *stubRemote {
	return &stubRemote{started: make(chan string, 16), gates: make(map[string]chan reply)}
}

func (s *stubRemote) gate(key string) chan reply {
	ch := make(chan reply, 1)
	s.mu.Lock()
	s.gates[key] = ch
	s.mu.Unlock()
	return ch
}

func (s *stubRemote) wait(ctx context.Context, key string, fallback reply) (Record[workout], error) {
	s.mu.Lock()
	ch, ok := s.gates[key]
	s.mu.Unlock()
	s.started <- key
	if !ok {
		return fallback.rec, fallback.err
	}
	select {
	case r := <-ch:
		return r.rec, r.err
	case <-ctx.Done():
		return Record[workout]{}, ctx.Err()
	}
}

func (s *stubRemote) List(context.Context) ([]Record[workout], error) {
	return s.list, s.listErr
}

func (s *stubRemote) Create(ctx context.Context, p workout) (Record[workout], error) {
	s.mu.Lock()
	s.creates = append(s.creates, p)
	n := len(s.creates)
	s.mu.Unlock()
	return s.wait(ctx, p.Type, reply{rec: Record[workout]{ID: fmt.Sprintf("r%d", n), Payload: p}})
}

func (s *stubRemote) Update(ctx context.Context, id string, p workout) (Record[workout], error) {
	s.mu.Lock()
	s.updates = append(s.updates, id)
	err := s.updateErr
	s.mu.Unlock()
	if err != nil {
		return s.wait(ctx, "update:"+id, reply{err: err})
	}
	return s.wait(ctx, "update:"+id, reply{rec: Record[workout]{ID: id, Payload: p}})
}

func (s *stubRemote) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, id)
	err := s.deleteErr
	s.mu.Unlock()
	_, werr := s.wait(ctx, "delete:"+id, reply{err: err})
	return werr
}

type settledCall struct {
	op  Op
	err error
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []settledCall
}

func (o *recordingObserver) Settled(_ string, op Op, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, settledCall{op: op, err: err})
}

func submitAsync(ctx context.Context, c *Container[workout], p workout) <-chan reply {
	out := make(chan reply, 1)
	go func() {
		r, err := c.Submit(ctx, p)
		out <- reply{rec: r, err: err}
	}()
	return out
}

func TestSubmitShowsTentativeRecordThenConfirmed(t *testing.T) {
	ctx := context.Background()
	remote := newStubRemote()
	release := remote.gate("running")
	c := New[workout]("cardio", remote, nil)

	done := submitAsync(ctx, c, workout{Type: "running", Duration: 30})
	require.Equal(t, "running", <-remote.started)

	state := c.State()
	require.Equal(t, 1, state.Len())
	first := state.At(0)
	require.Equal(t, workout{Type: "running", Duration: 30}, first.Payload)
	require.True(t, strings.HasPrefix(first.ID, "tmp_"), "tentative id %q", first.ID)
	require.True(t, first.Tentative())
	require.Equal(t, []string{first.ID}, c.Pending())

	confirmed := Record[workout]{ID: "r1", Payload: workout{Type: "running", Duration: 30}}
	release <- reply{rec: confirmed}
	res := <-done

	require.NoError(t, res.err)
	require.Equal(t, confirmed, res.rec)
	require.Equal(t, confirmed, c.State().At(0))
	require.Equal(t, 1, c.State().Len())
	require.Empty(t, c.Pending())
	require.Equal(t, []workout{{Type: "running", Duration: 30}}, remote.creates)
}

func TestSubmitRollsBackOnRemoteFailure(t *testing.T) {
	ctx := context.Background()
	remote := newStubRemote()
	release := remote.gate("cycling")
	seed := []Record[workout]{rec("a", "running", 30)}
	c := New[workout]("cardio", remote, seed)
	before := c.State()

	var sawRollback bool
	unsubscribe := c.Subscribe(func(a Action[workout], s State[workout]) {
		if a.Kind() == KindRemove {
			sawRollback = s.Len() == 1
		}
	})
	defer unsubscribe()

	done := submitAsync(ctx, c, workout{Type: "cycling", Duration: 45})
	<-remote.started
	require.Equal(t, 2, c.State().Len())

	release <- reply{err: errNetwork}
	res := <-done

	require.True(t, sawRollback, "rollback must be applied before the error surfaces")
	var remoteErr *RemoteOperationError
	require.ErrorAs(t, res.err, &remoteErr)
	require.Equal(t, OpCreate, remoteErr.Op)
	require.Equal(t, "cardio", remoteErr.Category)
	require.ErrorIs(t, res.err, errNetwork)

	after := c.State()
	require.Equal(t, before.Len(), after.Len())
	require.Equal(t, before.Records(), after.Records())
	for _, r := range after.Records() {
		require.NotEqual(t, "cycling", r.Payload.Type)
	}
	require.Empty(t, c.Pending())
}

func TestSubmitAppliesExactlyTwoTransitions(t *testing.T) {
	cases := map[string]struct {
		outcome reply
		want    []Kind
	}{
		"success": {outcome: reply{rec: rec("r9", "running", 30)}, want: []Kind{KindAdd, KindUpdate}},
		"failure": {outcome: reply{err: errNetwork}, want: []Kind{KindAdd, KindRemove}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			remote := newStubRemote()
			release := remote.gate("running")
			c := New[workout]("cardio", remote, nil)

			var kinds []Kind
			c.Subscribe(func(a Action[workout], _ State[workout]) { kinds = append(kinds, a.Kind()) })

			done := submitAsync(context.Background(), c, workout{Type: "running", Duration: 30})
			<-remote.started
			release <- tc.outcome
			<-done

			require.Equal(t, tc.want, kinds)
			require.Len(t, remote.creates, 1)
		})
	}
}

func TestSubmitConfirmationKeepsPosition(t *testing.T) {
	ctx := context.Background()
	remote := newStubRemote()
	releaseRun := remote.gate("running")
	releaseRide := remote.gate("cycling")
	c := New[workout]("cardio", remote, []Record[workout]{rec("old", "swim", 20)})

	runDone := submitAsync(ctx, c, workout{Type: "running", Duration: 30})
	<-remote.started
	rideDone := submitAsync(ctx, c, workout{Type: "cycling", Duration: 45})
	<-remote.started

	state := c.State()
	require.Equal(t, 3, state.Len())
	require.Equal(t, "cycling", state.At(0).Payload.Type)
	require.Equal(t, "running", state.At(1).Payload.Type)
	require.Len(t, c.Pending(), 2)

	confirmedRun := rec("r-run", "running", 30)
	releaseRun <- reply{rec: confirmedRun}
	require.NoError(t, (<-runDone).err)

	state = c.State()
	require.Equal(t, confirmedRun, state.At(1))
	require.True(t, state.At(0).Tentative())
	require.Len(t, c.Pending(), 1)

	releaseRide <- reply{rec: rec("r-ride", "cycling", 45)}
	require.NoError(t, (<-rideDone).err)
	require.Equal(t, []string{"r-ride", "r-run", "old"}, ids(c.State()))
}

func TestConcurrentSubmitsSettleIndependently(t *testing.T) {
	ctx := context.Background()
	remote := newStubRemote()
	releaseOK := remote.gate("running")
	releaseFail := remote.gate("cycling")
	c := New[workout]("cardio", remote, nil)

	okDone := submitAsync(ctx, c, workout{Type: "running", Duration: 30})
	failDone := submitAsync(ctx, c, workout{Type: "cycling", Duration: 45})
	<-remote.started
	<-remote.started

	releaseFail <- reply{err: errNetwork}
	require.Error(t, (<-failDone).err)
	require.Equal(t, 1, c.State().Len(), "only the still-pending record remains")

	confirmed := rec("r1", "running", 30)
	releaseOK <- reply{rec: confirmed}
	require.NoError(t, (<-okDone).err)

	require.Equal(t, []Record[workout]{confirmed}, c.State().Records())
	require.Empty(t, c.Pending())
}

func TestSubmitWithoutConfirmedIDRollsBack(t *testing.T) {
	remote := newStubRemote()
	release := remote.gate("running")
	c := New[workout]("cardio", remote, nil)

	done := submitAsync(context.Background(), c, workout{Type: "running", Duration: 30})
	<-remote.started
	release <- reply{rec: Record[workout]{Payload: workout{Type: "running"}}}

	res := <-done
	require.ErrorIs(t, res.err, ErrMissingIdentifier)
	require.Zero(t, c.State().Len())
	require.Empty(t, c.Pending())
}

func TestSubmitCancelledContextRollsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	remote := newStubRemote()
	remote.gate("running")
	c := New[workout]("cardio", remote, nil)

	done := submitAsync(ctx, c, workout{Type: "running", Duration: 30})
	<-remote.started
	cancel()

	res := <-done
	require.ErrorIs(t, res.err, context.Canceled)
	require.Zero(t, c.State().Len())
}

func TestDispatchRejectsSetAndPendingTargets(t *testing.T) {
	remote := newStubRemote()
	release := remote.gate("running")
	c := New[workout]("cardio", remote, []Record[workout]{rec("a", "swim", 10)})

	require.ErrorIs(t, c.Dispatch(Set[workout]{}), ErrAlreadySeeded)

	done := submitAsync(context.Background(), c, workout{Type: "running", Duration: 30})
	<-remote.started
	tmp := c.Pending()[0]

	require.ErrorIs(t, c.Dispatch(Remove[workout]{ID: tmp}), ErrPending)
	require.ErrorIs(t, c.Dispatch(Update[workout]{ID: tmp, Record: rec("c1", "x", 1)}), ErrPending)
	require.ErrorIs(t, c.Dispatch(Update[workout]{ID: "a", Record: rec(tmp, "x", 1)}), ErrTentativeID)
	require.Equal(t, 2, c.State().Len())

	require.NoError(t, c.Dispatch(Remove[workout]{ID: "a"}))
	require.Equal(t, 1, c.State().Len())

	release <- reply{rec: rec("r1", "running", 30)}
	require.NoError(t, (<-done).err)
	require.Equal(t, []string{"r1"}, ids(c.State()))
}

func TestEditConfirmsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	remote := newStubRemote()
	original := rec("a", "running", 30)
	c := New[workout]("cardio", remote, []Record[workout]{rec("b", "swim", 10), original})

	updated, err := c.Edit(ctx, "a", workout{Type: "running", Duration: 40})
	require.NoError(t, err)
	require.Equal(t, 40, updated.Payload.Duration)
	require.Equal(t, updated, c.State().At(1))
	<-remote.started

	remote.mu.Lock()
	remote.updateErr = errNetwork
	remote.mu.Unlock()

	_, err = c.Edit(ctx, "a", workout{Type: "running", Duration: 99})
	<-remote.started
	var remoteErr *RemoteOperationError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, OpUpdate, remoteErr.Op)
	require.Equal(t, "a", remoteErr.ID)
	require.Equal(t, updated, c.State().At(1), "previous record restored in place")
}

func TestEditShowsTentativePayloadWhileInFlight(t *testing.T) {
	ctx := context.Background()
	remote := newStubRemote()
	release := remote.gate("update:a")
	c := New[workout]("cardio", remote, []Record[workout]{rec("a", "running", 30)})

	done := make(chan error, 1)
	go func() {
		_, err := c.Edit(ctx, "a", workout{Type: "running", Duration: 45})
		done <- err
	}()
	<-remote.started

	require.Equal(t, 45, c.State().At(0).Payload.Duration)
	_, err := c.Edit(ctx, "a", workout{Type: "running", Duration: 50})
	require.ErrorIs(t, err, ErrPending)
	require.ErrorIs(t, c.Delete(ctx, "a"), ErrPending)

	release <- reply{rec: rec("a", "running", 45)}
	require.NoError(t, <-done)
}

func TestEditUnknownRecord(t *testing.T) {
	c := New[workout]("cardio", newStubRemote(), nil)
	_, err := c.Edit(context.Background(), "ghost", workout{})
	require.ErrorIs(t, err, ErrRecordNotFound)
	require.ErrorIs(t, c.Delete(context.Background(), "ghost"), ErrRecordNotFound)
}

func TestDeleteRemovesAndRestoresPosition(t *testing.T) {
	ctx := context.Background()
	remote := newStubRemote()
	c := New[workout]("cardio", remote, []Record[workout]{rec("a", "run", 1), rec("b", "ride", 2), rec("c", "swim", 3)})

	remote.deleteErr = errNetwork
	err := c.Delete(ctx, "b")
	<-remote.started
	var remoteErr *RemoteOperationError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, OpDelete, remoteErr.Op)
	require.Equal(t, []string{"a", "b", "c"}, ids(c.State()))

	remote.deleteErr = nil
	require.NoError(t, c.Delete(ctx, "b"))
	<-remote.started
	require.Equal(t, []string{"a", "c"}, ids(c.State()))
	require.Equal(t, []string{"b", "b"}, remote.deletes)
}

func TestDeleteRollbackKeepsOrderWhenSubmitLands(t *testing.T) {
	ctx := context.Background()
	remote := newStubRemote()
	release := remote.gate("delete:b")
	c := New[workout]("cardio", remote, []Record[workout]{rec("a", "run", 1), rec("b", "ride", 2), rec("c", "swim", 3)})

	done := make(chan error, 1)
	go func() { done <- c.Delete(ctx, "b") }()
	require.Equal(t, "delete:b", <-remote.started)

	confirmed, err := c.Submit(ctx, workout{Type: "row", Duration: 20})
	require.NoError(t, err)
	require.Equal(t, "r1", confirmed.ID)
	require.Equal(t, []string{"r1", "a", "c"}, ids(c.State()))

	release <- reply{err: errNetwork}
	var remoteErr *RemoteOperationError
	require.ErrorAs(t, <-done, &remoteErr)
	require.Equal(t, []string{"r1", "a", "b", "c"}, ids(c.State()))
}

func TestDeleteRollbackFallsBackToSuccessor(t *testing.T) {
	ctx := context.Background()
	remote := newStubRemote()
	release := remote.gate("delete:b")
	c := New[workout]("cardio", remote, []Record[workout]{rec("a", "run", 1), rec("b", "ride", 2), rec("c", "swim", 3)})

	done := make(chan error, 1)
	go func() { done <- c.Delete(ctx, "b") }()
	require.Equal(t, "delete:b", <-remote.started)

	require.NoError(t, c.Delete(ctx, "a"))
	<-remote.started
	_, err := c.Submit(ctx, workout{Type: "row", Duration: 20})
	require.NoError(t, err)
	<-remote.started
	require.Equal(t, []string{"r1", "c"}, ids(c.State()))

	release <- reply{err: errNetwork}
	require.Error(t, <-done)
	require.Equal(t, []string{"r1", "b", "c"}, ids(c.State()))
}

func TestEditRollbackWhileSubmitLands(t *testing.T) {
	ctx := context.Background()
	remote := newStubRemote()
	release := remote.gate("update:b")
	original := rec("b", "ride", 2)
	c := New[workout]("cardio", remote, []Record[workout]{rec("a", "run", 1), original})

	done := make(chan error, 1)
	go func() {
		_, err := c.Edit(ctx, "b", workout{Type: "ride", Duration: 90})
		done <- err
	}()
	require.Equal(t, "update:b", <-remote.started)

	_, err := c.Submit(ctx, workout{Type: "row", Duration: 20})
	require.NoError(t, err)
	<-remote.started

	release <- reply{err: errNetwork}
	require.Error(t, <-done)
	require.Equal(t, []string{"r1", "a", "b"}, ids(c.State()))
	got, ok := c.State().Get("b")
	require.True(t, ok)
	require.Equal(t, original, got)
	requirePendingMatchesState(t, c)
}

func TestDispatchRejectsTentativeRecords(t *testing.T) {
	ctx := context.Background()
	remote := newStubRemote()
	release := remote.gate("running")
	c := New[workout]("cardio", remote, []Record[workout]{rec("a", "swim", 10)})

	forged := rec(NewTentativeID(), "run", 5)
	require.ErrorIs(t, c.Dispatch(Add[workout]{Record: forged}), ErrTentativeID)
	require.ErrorIs(t, c.Dispatch(Insert[workout]{Index: 1, Record: forged}), ErrTentativeID)
	require.ErrorIs(t, c.Dispatch(Update[workout]{ID: "a", Record: forged}), ErrTentativeID)
	require.Equal(t, []string{"a"}, ids(c.State()))
	requirePendingMatchesState(t, c)

	done := submitAsync(ctx, c, workout{Type: "running", Duration: 30})
	<-remote.started
	requirePendingMatchesState(t, c)

	require.NoError(t, c.Dispatch(Add[workout]{Record: rec("z", "walk", 15)}))
	require.NoError(t, c.Dispatch(Update[workout]{ID: "a", Record: rec("a", "swim", 12)}))
	requirePendingMatchesState(t, c)

	release <- reply{rec: rec("r1", "running", 30)}
	require.NoError(t, (<-done).err)
	require.Empty(t, c.Pending())
	requirePendingMatchesState(t, c)
}

// requirePendingMatchesState checks that the tentative records in State are
// exactly the identifiers in the Pending set.
func requirePendingMatchesState(t *testing.T, c *Container[workout]) {
	t.Helper()
	var tentative []string
	for _, r := range c.State().Records() {
		if r.Tentative() {
			tentative = append(tentative, r.ID)
		}
	}
	require.ElementsMatch(t, tentative, c.Pending())
}

func TestMountSeedsFromLoader(t *testing.T) {
	remote := newStubRemote()
	remote.list = []Record[workout]{rec("b", "ride", 2), rec("a", "run", 1)}
	obs := &recordingObserver{}

	c, err := Mount[workout](context.Background(), "cardio", remote, WithObserver[workout](obs))
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, ids(c.State()))
	require.Equal(t, "cardio", c.Category())
	require.Equal(t, []settledCall{{op: OpLoad}}, obs.calls)
}

func TestMountPropagatesLoaderFailure(t *testing.T) {
	remote := newStubRemote()
	remote.listErr = errNetwork

	c, err := Mount[workout](context.Background(), "cardio", remote)
	require.Nil(t, c)
	var remoteErr *RemoteOperationError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, OpLoad, remoteErr.Op)
	require.ErrorIs(t, err, errNetwork)
}

func TestObserverSeesSettledOperations(t *testing.T) {
	remote := newStubRemote()
	obs := &recordingObserver{}
	fixed := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	c := New[workout]("cardio", remote, nil,
		WithObserver[workout](obs),
		WithIDGenerator[workout](func() string { return "tmp_fixed" }),
		WithClock[workout](func() time.Time { return fixed }),
	)

	var tentative Record[workout]
	c.Subscribe(func(a Action[workout], _ State[workout]) {
		if add, ok := a.(Add[workout]); ok {
			tentative = add.Record
		}
	})

	_, err := c.Submit(context.Background(), workout{Type: "running", Duration: 30})
	require.NoError(t, err)
	<-remote.started

	require.Equal(t, "tmp_fixed", tentative.ID)
	require.Equal(t, fixed, tentative.CreatedAt)
	require.Equal(t, []settledCall{{op: OpCreate}}, obs.calls)
}

func TestNewTentativeIDIsUniqueAndPrefixed(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewTentativeID()
		require.True(t, IsTentative(id), id)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
	require.False(t, IsTentative("3f1c7c8e-0d55-4a63-9f55-9b0c6f0e8a11"))
}
