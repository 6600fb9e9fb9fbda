package provider

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/github-authentication/events"
	"github.com/jrsteele09/github-authentication/sessions"
)

const (
	ProviderID          = "github"
	ProviderDisplayName = "GitHub"
)

// AuthenticationProvider is the capability set a host consumes.
type AuthenticationProvider interface {
	ID() string
	DisplayName() string
	SupportsMultipleAccounts() bool
	OnDidChangeSessions(fn func(events.ChangeEvent)) (unsubscribe func())
	GetSessions(ctx context.Context) ([]sessions.Session, error)
	Login(ctx context.Context, scopes []string) (sessions.Session, error)
	Logout(ctx context.Context, id string) error
}

// Host is the application the provider registers with.
type Host interface {
	RegisterAuthenticationProvider(p AuthenticationProvider) error
}

type registration struct {
	p *Provider
}

var _ AuthenticationProvider = registration{}

// Registration returns the host-facing view of p.
func (p *Provider) Registration() AuthenticationProvider {
	return registration{p: p}
}

func (registration) ID() string                     { return ProviderID }
func (registration) DisplayName() string            { return ProviderDisplayName }
func (registration) SupportsMultipleAccounts() bool { return false }

func (r registration) OnDidChangeSessions(fn func(events.ChangeEvent)) (unsubscribe func()) {
	return r.p.OnDidChangeSessions(fn)
}

func (r registration) GetSessions(_ context.Context) ([]sessions.Session, error) {
	return r.p.Sessions()
}

func (r registration) Login(ctx context.Context, scopes []string) (sessions.Session, error) {
	return r.p.Login(ctx, scopes)
}

func (r registration) Logout(ctx context.Context, id string) error {
	return r.p.Logout(ctx, id)
}

// Activate initializes p and registers it with host. A host that also
// implements ErrorReporter receives sign in failures.
func Activate(ctx context.Context, host Host, p *Provider) error {
	if reporter, ok := host.(ErrorReporter); ok {
		p.setReporter(reporter)
	}
	if err := p.Initialize(ctx); err != nil {
		return err
	}
	if err := host.RegisterAuthenticationProvider(p.Registration()); err != nil {
		log.Err(err).Msg("Host rejected the authentication provider")
		return err
	}
	log.Debug().Str("provider", ProviderID).Msg("Authentication provider registered")
	return nil
}
