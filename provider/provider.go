// Package provider is the GitHub authentication provider a host application
// registers: it lists sessions, signs in, signs out and reports changes.
package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/github-authentication/callback"
	"github.com/jrsteele09/github-authentication/events"
	"github.com/jrsteele09/github-authentication/oauthmodel"
	"github.com/jrsteele09/github-authentication/scopes"
	"github.com/jrsteele09/github-authentication/sessions"
)

// Handshaker runs one authorization for a normalized scope key.
// *handshake.Engine implements it.
type Handshaker interface {
	Run(ctx context.Context, scopeKey string) (sessions.Session, sessions.PutResult, error)
}

// RouteRegistrar installs the process's callback route. *callback.Gateway
// implements it.
type RouteRegistrar interface {
	Register(installer callback.RouteInstaller) error
}

// ErrorReporter shows a failure to the user.
type ErrorReporter interface {
	ShowErrorMessage(message string)
}

type Options struct {
	Store     *sessions.Store
	Engine    Handshaker
	Gateway   RouteRegistrar
	Installer callback.RouteInstaller
	Notifier  *events.Notifier // created when nil
	Reporter  ErrorReporter    // optional
}

// Provider composes the session store, handshake engine, callback gateway
// and change notifier. Initialize must succeed before any other call.
type Provider struct {
	store     *sessions.Store
	engine    Handshaker
	gateway   RouteRegistrar
	installer callback.RouteInstaller
	notifier  *events.Notifier

	mu          sync.RWMutex
	initialized bool
	reporter    ErrorReporter
}

func New(opts Options) (*Provider, error) {
	if opts.Store == nil || opts.Engine == nil || opts.Gateway == nil || opts.Installer == nil {
		return nil, errors.New("provider: store, engine, gateway and installer are required")
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = events.NewNotifier()
	}
	return &Provider{
		store:     opts.Store,
		engine:    opts.Engine,
		gateway:   opts.Gateway,
		installer: opts.Installer,
		notifier:  notifier,
		reporter:  opts.Reporter,
	}, nil
}

// Initialize loads persisted sessions and installs the callback route. A
// persistence failure is returned and leaves the provider uninitialized.
func (p *Provider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return oauthmodel.ErrAlreadyInitialized
	}
	if err := p.store.Initialize(ctx); err != nil {
		log.Err(err).Msg("Failed to load sessions")
		return err
	}
	if err := p.gateway.Register(p.installer); err != nil {
		log.Err(err).Msg("Failed to register the callback route")
		return err
	}
	p.initialized = true

	log.Info().Int("sessions", len(p.store.List())).Msg("GitHub authentication provider initialised")
	return nil
}

func (p *Provider) ready() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.initialized {
		return oauthmodel.ErrNotInitialized
	}
	return nil
}

// Sessions returns a snapshot of the current sessions.
func (p *Provider) Sessions() ([]sessions.Session, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return p.store.List(), nil
}

// Login signs in with the requested scopes. An existing session for the same
// scope set is replaced and reported as changed, otherwise as added.
func (p *Provider) Login(ctx context.Context, requested []string) (sessions.Session, error) {
	if err := p.ready(); err != nil {
		return sessions.Session{}, err
	}

	scopeKey := scopes.Normalize(requested)
	if existing, ok := p.store.FindByScopeKey(scopeKey); ok {
		log.Debug().Str("session_id", existing.ID).Str("scopes", scopeKey).Msg("Signing in again, the existing session will be replaced")
	}
	session, result, err := p.engine.Run(ctx, scopeKey)
	if err != nil {
		log.Err(err).Str("scopes", scopeKey).Msg("Sign in failed")
		p.report("Sign in failed: " + err.Error())
		return sessions.Session{}, err
	}

	log.Info().
		Str("session_id", session.ID).
		Str("account", session.AccountLabel).
		Str("scopes", scopeKey).
		Msg("Login success")

	if result == sessions.PutChanged {
		p.notifier.Fire(events.ChangeEvent{Changed: []string{session.ID}})
	} else {
		p.notifier.Fire(events.ChangeEvent{Added: []string{session.ID}})
	}
	return session, nil
}

// Logout removes the session. An unknown id removes nothing and fires nothing.
func (p *Provider) Logout(ctx context.Context, id string) error {
	if err := p.ready(); err != nil {
		return err
	}

	removed, err := p.store.Remove(ctx, id)
	if err != nil {
		log.Err(err).Str("session_id", id).Msg("Sign out failed")
		return err
	}
	if !removed {
		log.Debug().Str("session_id", id).Msg("Sign out of unknown session")
		return nil
	}

	log.Info().Str("session_id", id).Msg("Logout success")
	p.notifier.Fire(events.ChangeEvent{Removed: []string{id}})
	return nil
}

// SyncSessions picks up changes another process made to the persisted
// sessions and fires one event describing them.
func (p *Provider) SyncSessions(ctx context.Context) (events.ChangeEvent, error) {
	if err := p.ready(); err != nil {
		return events.ChangeEvent{}, err
	}

	diff, err := p.store.Reload(ctx)
	if err != nil {
		log.Err(err).Msg("Failed to reload sessions")
		return events.ChangeEvent{}, err
	}

	ev := events.ChangeEvent{Added: diff.Added, Removed: diff.Removed, Changed: diff.Changed}
	if !ev.Empty() {
		log.Info().
			Int("added", len(ev.Added)).
			Int("removed", len(ev.Removed)).
			Int("changed", len(ev.Changed)).
			Msg("Sessions changed in storage")
		p.notifier.Fire(ev)
	}
	return ev, nil
}

// OnDidChangeSessions subscribes fn to session change events.
func (p *Provider) OnDidChangeSessions(fn func(events.ChangeEvent)) (unsubscribe func()) {
	return p.notifier.Subscribe(fn)
}

// Close drops every change subscriber.
func (p *Provider) Close() {
	p.notifier.Close()
}

func (p *Provider) setReporter(r ErrorReporter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reporter == nil {
		p.reporter = r
	}
}

func (p *Provider) report(message string) {
	p.mu.RLock()
	r := p.reporter
	p.mu.RUnlock()
	if r != nil {
		r.ShowErrorMessage(message)
	}
}
