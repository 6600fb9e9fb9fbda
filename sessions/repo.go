package sessions

import "context"

// Repo persists the session list. Implementations live in the secretstore
// packages; the store only relies on this load/save contract.
type Repo interface {
	// Load returns every persisted session. An empty store returns an empty slice.
	Load(ctx context.Context) ([]Session, error)

	// Save replaces the persisted list with sessions.
	Save(ctx context.Context, sessions []Session) error
}
