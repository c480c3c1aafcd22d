package dispatch

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// JobStore holds the authoritative job state, queryable by handle. The store
// is independent of the ECG store; analysis results live in PostgreSQL while
// job state lives here.
type JobStore interface {
	Set(ctx context.Context, snap JobSnapshot) error
	Get(ctx context.Context, id uuid.UUID) (JobSnapshot, error)
}

// MemoryStore is a process-local JobStore. Job state is lost on restart; use
// the Redis store when status must survive the process.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]JobSnapshot
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[uuid.UUID]JobSnapshot)}
}

func (s *MemoryStore) Set(_ context.Context, snap JobSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[snap.ID] = snap
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (JobSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.jobs[id]
	if !ok {
		return JobSnapshot{}, ErrUnknownJob
	}
	return snap, nil
}

// Ensure MemoryStore implements JobStore at compile time.
var _ JobStore = (*MemoryStore)(nil)
