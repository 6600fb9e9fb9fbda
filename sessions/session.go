package sessions

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/github-authentication/scopes"
)

// Session is a GitHub credential together with the account it belongs to,
// scoped to one normalized permission set.
type Session struct {
	ID           string    `json:"id"`            // Stable session identifier (UUID)
	AccountLabel string    `json:"account_label"` // Display name of the account, the GitHub login
	AccountID    string    `json:"account_id"`    // GitHub numeric user id
	Scopes       []string  `json:"scopes"`        // Granted scopes, sorted
	AccessToken  string    `json:"access_token"`  // OAuth access token, secret
	CreatedAt    time.Time `json:"created_at"`    // When the handshake produced this session
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.New().String()
}

// ScopeKey returns the normalized scope key of the session.
func (s Session) ScopeKey() string {
	return scopes.Normalize(s.Scopes)
}

// Clone returns a deep copy so callers cannot alias the store's slices.
func (s Session) Clone() Session {
	c := s
	if s.Scopes != nil {
		c.Scopes = append([]string(nil), s.Scopes...)
	}
	return c
}

// canonical returns a copy with scopes in canonical order.
func (s Session) canonical() Session {
	c := s.Clone()
	c.Scopes = scopes.Split(s.ScopeKey())
	return c
}

// String is safe to log: the access token is never included.
func (s Session) String() string {
	return "session{id=" + s.ID + " account=" + s.AccountLabel + " scopes=" + strings.Join(s.Scopes, ",") + "}"
}
