package orchestrator

// Store is the persistence abstraction for run state.
// Implementations can be in-memory, file-based, or remote.
// The Repository uses Store for all reads and writes; callers of Repository
// do not need to know which Store is used.
type Store interface {
	GetRun(id RunID) (*Run, bool)
	SetRun(r *Run)
	ListRunIDs() []RunID
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	runs map[RunID]*Run
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs: make(map[RunID]*Run),
	}
}

// GetRun implements Store.GetRun.
func (s *InMemoryStore) GetRun(id RunID) (*Run, bool) {
	r, ok := s.runs[id]
	return r, ok
}

// SetRun implements Store.SetRun.
func (s *InMemoryStore) SetRun(r *Run) {
	s.runs[r.ID] = r
}

// ListRunIDs implements Store.ListRunIDs.
func (s *InMemoryStore) ListRunIDs() []RunID {
	ids := make([]RunID, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	return ids
}
