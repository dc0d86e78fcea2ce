package optimistic

// Kind names a state transition.
type Kind string

const (
	KindSet    Kind = "set"
	KindAdd    Kind = "add"
	KindUpdate Kind = "update"
	KindRemove Kind = "remove"
	KindInsert Kind = "insert"
)

// Action is a state transition understood by Reduce. The set is closed: only the
// types declared in this file implement it.
type Action[P any] interface {
	Kind() Kind
	sealed()
}

// Set replaces the whole sequence. Only the container's seeding step may apply it.
type Set[P any] struct {
	Records []Record[P]
}

// Add prepends Record.
type Add[P any] struct {
	Record Record[P]
}

// Update replaces the element identified by ID with Record, in place. An empty ID
// targets Record.ID.
type Update[P any] struct {
	ID     string
	Record Record[P]
}

// Remove drops the element identified by ID.
type Remove[P any] struct {
	ID string
}

// Insert places Record at Index, clamped to the bounds of the sequence.
type Insert[P any] struct {
	Index  int
	Record Record[P]
}

func (Set[P]) Kind() Kind    { return KindSet }
func (Add[P]) Kind() Kind    { return KindAdd }
func (Update[P]) Kind() Kind { return KindUpdate }
func (Remove[P]) Kind() Kind { return KindRemove }
func (Insert[P]) Kind() Kind { return KindInsert }

func (Set[P]) sealed()    {}
func (Add[P]) sealed()    {}
func (Update[P]) sealed() {}
func (Remove[P]) sealed() {}
func (Insert[P]) sealed() {}

// target returns the identifier an action addresses, or "" for Set.
func target[P any](a Action[P]) string {
	switch act := a.(type) {
	case Add[P]:
		return act.Record.ID
	case Update[P]:
		if act.ID != "" {
			return act.ID
		}
		return act.Record.ID
	case Remove[P]:
		return act.ID
	case Insert[P]:
		return act.Record.ID
	}
	return ""
}

// tentativeRecord reports whether a places a record with a tentative identifier.
func tentativeRecord[P any](a Action[P]) bool {
	switch act := a.(type) {
	case Add[P]:
		return IsTentative(act.Record.ID)
	case Update[P]:
		return IsTentative(act.Record.ID)
	case Insert[P]:
		return IsTentative(act.Record.ID)
	}
	return false
}
