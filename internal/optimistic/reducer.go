package optimistic

// State is an immutable, newest-first snapshot of a category's records.
// The zero value is an empty state.
type State[P any] struct {
	records []Record[P]
	index   map[string]int
}

// NewState builds a state from records, keeping the first occurrence of any duplicated ID.
func NewState[P any](records []Record[P]) State[P] {
	out := make([]Record[P], 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return build(out)
}

func build[P any](records []Record[P]) State[P] {
	index := make(map[string]int, len(records))
	for i, rec := range records {
		index[rec.ID] = i
	}
	return State[P]{records: records, index: index}
}

// Len returns the number of records.
func (s State[P]) Len() int { return len(s.records) }

// At returns the record at position i.
func (s State[P]) At(i int) Record[P] { return s.records[i] }

// Records returns a copy of the sequence.
func (s State[P]) Records() []Record[P] {
	out := make([]Record[P], len(s.records))
	copy(out, s.records)
	return out
}

// Get looks a record up by identifier.
func (s State[P]) Get(id string) (Record[P], bool) {
	i, ok := s.index[id]
	if !ok {
		return Record[P]{}, false
	}
	return s.records[i], true
}

// IndexOf returns the position of id, or -1.
func (s State[P]) IndexOf(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Reduce applies a to s and returns the resulting state. s is never modified.
func Reduce[P any](s State[P], a Action[P]) State[P] {
	switch act := a.(type) {
	case Set[P]:
		return NewState(act.Records)
	case Add[P]:
		return s.insertAt(0, act.Record)
	case Insert[P]:
		return s.insertAt(act.Index, act.Record)
	case Update[P]:
		id := act.ID
		if id == "" {
			id = act.Record.ID
		}
		pos, ok := s.index[id]
		if !ok {
			return s
		}
		out := make([]Record[P], 0, len(s.records))
		for i, rec := range s.records {
			switch {
			case i == pos:
				out = append(out, act.Record)
			case rec.ID == act.Record.ID:
				// replacement id already present elsewhere
			default:
				out = append(out, rec)
			}
		}
		return build(out)
	case Remove[P]:
		if _, ok := s.index[act.ID]; !ok {
			return s
		}
		return build(s.without(act.ID))
	}
	return s
}

func (s State[P]) insertAt(pos int, rec Record[P]) State[P] {
	rest := s.without(rec.ID)
	if pos < 0 {
		pos = 0
	}
	if pos > len(rest) {
		pos = len(rest)
	}
	out := make([]Record[P], 0, len(rest)+1)
	out = append(out, rest[:pos]...)
	out = append(out, rec)
	out = append(out, rest[pos:]...)
	return build(out)
}

func (s State[P]) without(id string) []Record[P] {
	out := make([]Record[P], 0, len(s.records))
	for _, rec := range s.records {
		if rec.ID != id {
			out = append(out, rec)
		}
	}
	return out
}
