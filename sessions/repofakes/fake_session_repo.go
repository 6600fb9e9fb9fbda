package fakesessionrepo

import (
	"context"
	"sync"

	"github.com/jrsteele09/github-authentication/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory sessions.Repo. LoadErr and SaveErr, when
// set, are returned by the next calls instead of touching the data.
type FakeSessionRepo struct {
	lock      sync.RWMutex
	sessions  []sessions.Session
	LoadErr   error
	SaveErr   error
	saveCalls int
}

func NewFakeSessionRepo(initial ...sessions.Session) *FakeSessionRepo {
	return &FakeSessionRepo{sessions: cloneAll(initial)}
}

func (r *FakeSessionRepo) Load(_ context.Context) ([]sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	return cloneAll(r.sessions), nil
}

func (r *FakeSessionRepo) Save(_ context.Context, list []sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.saveCalls++
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.sessions = cloneAll(list)
	return nil
}

// SetFailures sets the injected errors under the lock.
func (r *FakeSessionRepo) SetFailures(loadErr, saveErr error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.LoadErr = loadErr
	r.SaveErr = saveErr
}

// Replace overwrites the persisted list, simulating a write by another process.
func (r *FakeSessionRepo) Replace(list ...sessions.Session) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.sessions = cloneAll(list)
}

// Persisted returns a copy of what was last saved.
func (r *FakeSessionRepo) Persisted() []sessions.Session {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return cloneAll(r.sessions)
}

func (r *FakeSessionRepo) SaveCalls() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.saveCalls
}

func cloneAll(in []sessions.Session) []sessions.Session {
	out := make([]sessions.Session, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
