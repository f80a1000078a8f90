package orchestrator

import (
	"errors"
	"sync"
	"time"
)

// Repository defines the concurrency-safe contract for accessing and mutating
// in-memory run state.
type Repository interface {
	// CreateRun records a new run in StatusPending. A duplicate ID is an
	// error.
	CreateRun(r Run) error

	// GetRun returns a snapshot copy of the run. The ok return is false if
	// the run does not exist.
	GetRun(id RunID) (Run, bool)

	// SetStatus moves a run to the given status.
	SetStatus(id RunID, status RunStatus) error

	// SetResult marks a run done with its window/frame counts and output
	// path.
	SetResult(id RunID, windows, frames int, outputPath string) error

	// SetFailed marks a run failed with the error message.
	SetFailed(id RunID, windows int, msg string) error

	// ActiveRunCount returns the number of runs that are pending or running.
	// Used for metrics.
	ActiveRunCount() int
}

var (
	// ErrRunExists is returned when creating a run with an ID already in use.
	ErrRunExists = errors.New("run already exists")

	// ErrRunNotFound is returned when mutating a run that does not exist.
	ErrRunNotFound = errors.New("run not found")
)

// InMemoryRepository is a concurrency-safe in-memory implementation of
// Repository. It uses a Store for persistence; by default that is an
// InMemoryStore.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
// Useful for testing or for plugging in a different persistence backend.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{store: store}
}

// CreateRun implements Repository.CreateRun.
func (r *InMemoryRepository) CreateRun(run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store.GetRun(run.ID); exists {
		return ErrRunExists
	}

	now := time.Now().UTC()
	run.Status = StatusPending
	run.CreatedAt = now
	run.UpdatedAt = now
	r.store.SetRun(&run)
	return nil
}

// GetRun implements Repository.GetRun.
func (r *InMemoryRepository) GetRun(id RunID) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.store.GetRun(id)
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// SetStatus implements Repository.SetStatus.
func (r *InMemoryRepository) SetStatus(id RunID, status RunStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.store.GetRun(id)
	if !ok {
		return ErrRunNotFound
	}
	run.Status = status
	run.UpdatedAt = time.Now().UTC()
	return nil
}

// SetResult implements Repository.SetResult.
func (r *InMemoryRepository) SetResult(id RunID, windows, frames int, outputPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.store.GetRun(id)
	if !ok {
		return ErrRunNotFound
	}
	run.Status = StatusDone
	run.Windows = windows
	run.Frames = frames
	run.OutputPath = outputPath
	run.Error = ""
	run.UpdatedAt = time.Now().UTC()
	return nil
}

// SetFailed implements Repository.SetFailed.
func (r *InMemoryRepository) SetFailed(id RunID, windows int, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.store.GetRun(id)
	if !ok {
		return ErrRunNotFound
	}
	run.Status = StatusFailed
	run.Windows = windows
	run.Error = msg
	run.UpdatedAt = time.Now().UTC()
	return nil
}

// ActiveRunCount implements Repository.ActiveRunCount.
func (r *InMemoryRepository) ActiveRunCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, id := range r.store.ListRunIDs() {
		if run, ok := r.store.GetRun(id); ok {
			if run.Status == StatusPending || run.Status == StatusRunning {
				n++
			}
		}
	}
	return n
}
