// Package handshake runs the OAuth 2.0 authorization code flow with PKCE
// against GitHub and turns the result into a stored session.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/github-authentication/authflow"
	"github.com/jrsteele09/github-authentication/internal/utils"
	"github.com/jrsteele09/github-authentication/oauthmodel"
	"github.com/jrsteele09/github-authentication/scopes"
	"github.com/jrsteele09/github-authentication/sessions"
)

const (
	// DefaultCallbackTimeout bounds the wait for the browser redirect.
	DefaultCallbackTimeout = 5 * time.Minute
	// DefaultHTTPTimeout applies to the token and profile requests when no client is given.
	DefaultHTTPTimeout = 30 * time.Second
)

// Config holds the OAuth application settings.
type Config struct {
	ClientID        string
	ClientSecret    string
	AuthURL         string        // defaults to DefaultAuthURL
	TokenURL        string        // defaults to DefaultTokenURL
	APIBaseURL      string        // defaults to DefaultAPIBaseURL
	CallbackTimeout time.Duration // defaults to DefaultCallbackTimeout
	HTTPClient      *http.Client  // used for token exchange and profile fetch
}

// RedirectURISource supplies the redirect URI at the time a handshake starts.
type RedirectURISource interface {
	RedirectURI() string
}

// StaticRedirect is a fixed redirect URI.
type StaticRedirect string

func (s StaticRedirect) RedirectURI() string {
	return string(s)
}

// SessionWriter persists the session a successful handshake produced.
type SessionWriter interface {
	Put(ctx context.Context, s sessions.Session) (sessions.Session, sessions.PutResult, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithOpener replaces the default browser opener.
func WithOpener(o URLOpener) Option {
	return func(e *Engine) { e.opener = o }
}

// WithObserver receives every phase transition of every run.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithClock replaces time.Now for session timestamps and run durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine runs handshakes. It is safe for concurrent use; each Run owns a
// distinct pending attempt.
type Engine struct {
	oauth           oauth2.Config
	apiBaseURL      string
	callbackTimeout time.Duration
	httpClient      *http.Client

	registry *authflow.Registry
	redirect RedirectURISource
	store    SessionWriter
	opener   URLOpener
	observer Observer
	now      func() time.Time
}

// New creates an engine. The registry must be the one the callback gateway
// resolves attempts on. A missing client id is reported by Run, so an engine
// can exist in hosts that only list or remove sessions.
func New(cfg Config, registry *authflow.Registry, redirect RedirectURISource, store SessionWriter, opts ...Option) (*Engine, error) {
	if registry == nil || redirect == nil || store == nil {
		return nil, errors.New("handshake: registry, redirect source and session writer are required")
	}

	e := &Engine{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     githubEndpoint(cfg.AuthURL, cfg.TokenURL),
		},
		apiBaseURL:      utils.FirstNonEmpty(cfg.APIBaseURL, DefaultAPIBaseURL),
		callbackTimeout: cfg.CallbackTimeout,
		httpClient:      cfg.HTTPClient,
		registry:        registry,
		redirect:        redirect,
		store:           store,
		opener:          BrowserOpener{},
		now:             time.Now,
	}
	if e.callbackTimeout <= 0 {
		e.callbackTimeout = DefaultCallbackTimeout
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// run tracks the phase of a single handshake.
type run struct {
	e        *Engine
	scopeKey string
	phase    Phase
	started  time.Time
}

func (r *run) enter(p Phase) {
	r.report(Transition{ScopeKey: r.scopeKey, From: r.phase, To: p})
}

func (r *run) fail(err error) error {
	r.report(Transition{ScopeKey: r.scopeKey, From: r.phase, To: PhaseFailed, Err: err})
	return err
}

func (r *run) report(t Transition) {
	r.phase = t.To
	if r.e.observer != nil {
		r.e.observer(t)
	}
	if t.To.Terminal() {
		log.Debug().
			Str("scopes", r.scopeKey).
			Str("phase", t.To.String()).
			Dur("elapsed", r.e.now().Sub(r.started)).
			Msg("Handshake finished")
	}
}

// Run performs one authorization for scopeKey and stores the resulting
// session, replacing any session with the same scope key.
func (e *Engine) Run(ctx context.Context, scopeKey string) (sessions.Session, sessions.PutResult, error) {
	scopeKey = scopes.Normalize(scopes.Split(scopeKey))
	r := &run{e: e, scopeKey: scopeKey, phase: PhaseIdle, started: e.now()}
	if e.oauth.ClientID == "" {
		return sessions.Session{}, 0, r.fail(oauthmodel.ErrMissingClientID)
	}

	r.enter(PhaseAuthorizationRequested)
	verifier := oauth2.GenerateVerifier()
	attempt, outcome, err := e.registry.Begin(scopeKey, verifier)
	if err != nil {
		return sessions.Session{}, 0, r.fail(fmt.Errorf("starting authorization: %w", err))
	}
	defer e.registry.Discard(attempt.State)
	log.Debug().Str("scopes", scopeKey).Int("pending", e.registry.Pending()).Msg("Authorization requested")

	oc := e.oauth
	oc.RedirectURL = e.redirect.RedirectURI()
	oc.Scopes = scopes.Split(scopeKey)

	authURL := oc.AuthCodeURL(attempt.State, oauth2.S256ChallengeOption(verifier))
	if err := e.opener.Open(ctx, authURL); err != nil {
		log.Warn().Err(err).Str("url", authURL).Msg("Could not open a browser, open the URL to continue signing in")
	}

	r.enter(PhaseAwaitingCallback)
	code, err := e.awaitCode(ctx, outcome)
	if err != nil {
		return sessions.Session{}, 0, r.fail(err)
	}

	r.enter(PhaseExchangingToken)
	httpCtx := context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	token, err := oc.Exchange(httpCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return sessions.Session{}, 0, r.fail(exchangeError(err))
	}
	if token.AccessToken == "" {
		return sessions.Session{}, 0, r.fail(fmt.Errorf("%w: response carried no access token", oauthmodel.ErrTokenExchangeFailed))
	}

	profile, err := fetchProfile(httpCtx, oc.Client(httpCtx, token), e.apiBaseURL)
	if err != nil {
		return sessions.Session{}, 0, r.fail(fmt.Errorf("%w: %w", oauthmodel.ErrProfileFetchFailed, err))
	}

	stored, result, err := e.store.Put(ctx, sessions.Session{
		AccountLabel: profile.Label,
		AccountID:    profile.ID,
		Scopes:       scopes.Split(scopeKey),
		AccessToken:  token.AccessToken,
		CreatedAt:    e.now().UTC(),
	})
	if err != nil {
		return sessions.Session{}, 0, r.fail(err)
	}

	r.enter(PhaseCompleted)
	return stored, result, nil
}

func (e *Engine) awaitCode(ctx context.Context, outcome <-chan authflow.Outcome) (string, error) {
	timer := time.NewTimer(e.callbackTimeout)
	defer timer.Stop()

	select {
	case o := <-outcome:
		if o.Err != nil {
			return "", o.Err
		}
		return o.Code, nil
	case <-timer.C:
		return "", fmt.Errorf("%w: no redirect within %s", oauthmodel.ErrUserCancelledOrTimedOut, e.callbackTimeout)
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", oauthmodel.ErrUserCancelledOrTimedOut, ctx.Err())
	}
}

func exchangeError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		return fmt.Errorf("%w: %s: %w", oauthmodel.ErrTokenExchangeFailed, re.ErrorCode, err)
	}
	return fmt.Errorf("%w: %w", oauthmodel.ErrTokenExchangeFailed, err)
}
