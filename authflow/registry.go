// Package authflow tracks pending authorization attempts, correlating each
// one to the redirect that completes it by its state token.
package authflow

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"
)

// stateLength is the number of random bytes behind a state token (256 bits).
const stateLength = 32

// Attempt is one in-flight authorization request.
type Attempt struct {
	State           string    // Correlation token sent as the OAuth state parameter
	RequestedScopes string    // Normalized scope key
	CodeVerifier    string    // PKCE verifier, never leaves the process
	CreatedAt       time.Time // When the attempt began
}

// Outcome resolves an attempt: either an authorization code or an error.
type Outcome struct {
	Code string
	Err  error
}

type pending struct {
	attempt Attempt
	outcome chan Outcome
}

// Registry holds pending attempts. Each attempt is resolved at most once and
// removed from the registry when resolved or discarded.
type Registry struct {
	mu       sync.Mutex
	attempts map[string]*pending
	clock    func() time.Time
	random   func([]byte) (int, error)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		attempts: make(map[string]*pending),
		clock:    time.Now,
		random:   rand.Read,
	}
}

// Begin registers a new attempt with a fresh, unique state token and returns
// it together with the channel its outcome will be delivered on.
func (r *Registry) Begin(scopeKey, codeVerifier string) (Attempt, <-chan Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var state string
	for {
		s, err := r.newState()
		if err != nil {
			return Attempt{}, nil, fmt.Errorf("generating state: %w", err)
		}
		if _, taken := r.attempts[s]; !taken {
			state = s
			break
		}
	}

	p := &pending{
		attempt: Attempt{
			State:           state,
			RequestedScopes: scopeKey,
			CodeVerifier:    codeVerifier,
			CreatedAt:       r.clock(),
		},
		outcome: make(chan Outcome, 1),
	}
	r.attempts[state] = p
	return p.attempt, p.outcome, nil
}

// Resolve delivers outcome to the attempt with the given state and removes
// it. It returns false when no such attempt is pending.
func (r *Registry) Resolve(state string, outcome Outcome) bool {
	if state == "" {
		return false
	}

	r.mu.Lock()
	p, ok := r.attempts[state]
	if ok {
		delete(r.attempts, state)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	p.outcome <- outcome
	return true
}

// Discard forgets the attempt. Redirects arriving for it later no longer match.
func (r *Registry) Discard(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, state)
}

// Pending returns the number of attempts awaiting a redirect.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

func (r *Registry) newState() (string, error) {
	b := make([]byte, stateLength)
	n, err := r.random(b)
	if err != nil {
		return "", err
	}
	if n != stateLength {
		return "", errors.New("short read from random source")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
