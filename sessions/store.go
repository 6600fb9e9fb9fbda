package sessions

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/github-authentication/oauthmodel"
)

// PutResult tells whether Put created a session or replaced one.
type PutResult int

const (
	PutAdded PutResult = iota
	PutChanged
)

func (r PutResult) String() string {
	switch r {
	case PutAdded:
		return "added"
	case PutChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// Diff lists the session ids that differ between two snapshots.
type Diff struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether the diff holds no ids.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Store is the in-memory set of active sessions, written through to a Repo.
//
// Mutations compute the next snapshot, persist it and only then commit it in
// memory, all under the write lock, so readers never observe a state that was
// not saved. At most one session exists per id and per scope key.
type Store struct {
	mu       sync.RWMutex
	repo     Repo
	sessions []Session
}

// NewStore creates an empty store backed by repo.
func NewStore(repo Repo) *Store {
	return &Store{repo: repo}
}

// Initialize loads previously persisted sessions, replacing the in-memory set.
func (s *Store) Initialize(ctx context.Context) error {
	loaded, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: loading sessions: %w", oauthmodel.ErrStorePersistenceFailed, err)
	}

	s.mu.Lock()
	s.sessions = canonicalize(loaded)
	count := len(s.sessions)
	s.mu.Unlock()

	log.Debug().Int("sessions", count).Msg("Session store initialised")
	return nil
}

// List returns a snapshot of the current sessions, safe to retain and modify.
func (s *Store) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.sessions)
}

// Get returns the session with the given id.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexByID(id); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return Session{}, false
}

// FindByScopeKey returns the session holding the normalized scope key.
func (s *Store) FindByScopeKey(key string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexByScopeKey(key); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return Session{}, false
}

// Put inserts session or replaces an existing one. A session whose id is
// stored replaces that entry, and any other entry with the same scope key is
// dropped. Otherwise it replaces the session sharing its scope key and takes
// over the stored id. An empty id is assigned a fresh one.
func (s *Store) Put(ctx context.Context, session Session) (Session, PutResult, error) {
	session = session.canonical()

	s.mu.Lock()
	defer s.mu.Unlock()

	result := PutAdded
	next := cloneAll(s.sessions)
	key := session.ScopeKey()

	i := -1
	if session.ID != "" {
		i = s.indexByID(session.ID)
	}
	if i < 0 {
		if i = s.indexByScopeKey(key); i >= 0 {
			session.ID = next[i].ID
		}
	}
	if session.ID == "" {
		session.ID = NewID()
	}

	if i >= 0 {
		next[i] = session
		result = PutChanged
	} else {
		next = append(next, session)
	}
	next = slices.DeleteFunc(next, func(other Session) bool {
		return other.ID != session.ID && other.ScopeKey() == key
	})

	if err := s.repo.Save(ctx, next); err != nil {
		return Session{}, result, fmt.Errorf("%w: saving session %s: %w", oauthmodel.ErrStorePersistenceFailed, session.ID, err)
	}
	s.sessions = next

	log.Info().
		Str("session_id", session.ID).
		Str("account", session.AccountLabel).
		Str("scopes", session.ScopeKey()).
		Str("result", result.String()).
		Msg("Session stored")

	return session.Clone(), result, nil
}

// Remove deletes the session with the given id and reports whether it existed.
// Removing an unknown id changes nothing and is not an error.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexByID(id)
	if i < 0 {
		return false, nil
	}

	next := slices.Delete(cloneAll(s.sessions), i, i+1)
	if err := s.repo.Save(ctx, next); err != nil {
		return false, fmt.Errorf("%w: removing session %s: %w", oauthmodel.ErrStorePersistenceFailed, id, err)
	}
	s.sessions = next

	log.Info().Str("session_id", id).Msg("Session removed")
	return true, nil
}

// Reload re-reads the persisted sessions, replaces the in-memory set and
// reports what changed. It picks up writes made by other processes sharing
// the same storage.
func (s *Store) Reload(ctx context.Context) (Diff, error) {
	loaded, err := s.repo.Load(ctx)
	if err != nil {
		return Diff{}, fmt.Errorf("%w: reloading sessions: %w", oauthmodel.ErrStorePersistenceFailed, err)
	}
	loaded = canonicalize(loaded)

	s.mu.Lock()
	defer s.mu.Unlock()

	diff := diffSessions(s.sessions, loaded)
	s.sessions = loaded
	return diff, nil
}

func (s *Store) indexByID(id string) int {
	return slices.IndexFunc(s.sessions, func(existing Session) bool { return existing.ID == id })
}

func (s *Store) indexByScopeKey(key string) int {
	return slices.IndexFunc(s.sessions, func(existing Session) bool { return existing.ScopeKey() == key })
}

// canonicalize sorts scopes and drops earlier records that share an id or
// scope key with a later one.
func canonicalize(loaded []Session) []Session {
	out := make([]Session, 0, len(loaded))
	for _, session := range loaded {
		session = session.canonical()
		if session.ID == "" {
			continue
		}
		out = slices.DeleteFunc(out, func(existing Session) bool {
			return existing.ID == session.ID || existing.ScopeKey() == session.ScopeKey()
		})
		out = append(out, session)
	}
	return out
}

func diffSessions(before, after []Session) Diff {
	var diff Diff
	previous := make(map[string]Session, len(before))
	for _, session := range before {
		previous[session.ID] = session
	}
	for _, session := range after {
		old, ok := previous[session.ID]
		switch {
		case !ok:
			diff.Added = append(diff.Added, session.ID)
		case !sameSession(old, session):
			diff.Changed = append(diff.Changed, session.ID)
		}
		delete(previous, session.ID)
	}
	for _, session := range before {
		if _, ok := previous[session.ID]; ok {
			diff.Removed = append(diff.Removed, session.ID)
		}
	}
	return diff
}

func sameSession(a, b Session) bool {
	return a.AccessToken == b.AccessToken &&
		a.AccountLabel == b.AccountLabel &&
		a.AccountID == b.AccountID &&
		slices.Equal(a.Scopes, b.Scopes)
}

func cloneAll(in []Session) []Session {
	out := make([]Session, len(in))
	for i, session := range in {
		out[i] = session.Clone()
	}
	return out
}
