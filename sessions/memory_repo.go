package sessions

import (
	"context"
	"sync"
)

var _ Repo = (*MemoryRepo)(nil)

// MemoryRepo keeps sessions for the lifetime of the process only.
type MemoryRepo struct {
	mu       sync.RWMutex
	sessions []Session
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sessions: []Session{}}
}

func (r *MemoryRepo) Load(_ context.Context) ([]Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.sessions), nil
}

func (r *MemoryRepo) Save(_ context.Context, list []Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = cloneAll(list)
	return nil
}
