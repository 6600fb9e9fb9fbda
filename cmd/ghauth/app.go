package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/github-authentication/authflow"
	"github.com/jrsteele09/github-authentication/callback"
	"github.com/jrsteele09/github-authentication/handshake"
	"github.com/jrsteele09/github-authentication/internal/config"
	apperrors "github.com/jrsteele09/github-authentication/internal/errors"
	"github.com/jrsteele09/github-authentication/provider"
	"github.com/jrsteele09/github-authentication/secretstore/filestore"
	"github.com/jrsteele09/github-authentication/secretstore/sqlstore"
	"github.com/jrsteele09/github-authentication/server"
	"github.com/jrsteele09/github-authentication/sessions"
)

// app wires the provider for one command invocation.
type app struct {
	cfg      config.Config
	server   *server.CallbackServer
	provider *provider.Provider
	host     *consoleHost
	closers  []func() error
}

func newApp(ctx context.Context, cfg config.Config, host *consoleHost) (*app, error) {
	a := &app{cfg: cfg, host: host}
	a.closers = append(a.closers, func() error {
		host.close()
		return nil
	})

	repo, closeRepo, err := openRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closeRepo != nil {
		a.closers = append(a.closers, closeRepo)
	}

	registry := authflow.NewRegistry()
	a.server = server.New(server.Options{
		Env:  cfg.GetEnv(),
		Host: cfg.GetCallbackHost(),
		Port: cfg.GetCallbackPort(),
		Path: cfg.GetCallbackPath(),
	})
	a.closers = append(a.closers, a.server.Stop)

	store := sessions.NewStore(repo)
	engine, err := handshake.New(handshake.Config{
		ClientID:        cfg.GetClientID(),
		ClientSecret:    cfg.GetClientSecret(),
		AuthURL:         cfg.GetAuthURL(),
		TokenURL:        cfg.GetTokenURL(),
		APIBaseURL:      cfg.GetAPIBaseURL(),
		CallbackTimeout: cfg.GetCallbackTimeout(),
		HTTPClient:      &http.Client{Timeout: cfg.GetHTTPTimeout()},
	}, registry, a.server, store, handshake.WithObserver(logTransition))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.provider, err = provider.New(provider.Options{
		Store:     store,
		Engine:    engine,
		Gateway:   callback.NewGateway(cfg.GetCallbackPath(), registry),
		Installer: a.server,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		a.provider.Close()
		return nil
	})

	if err := provider.Activate(ctx, host, a.provider); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// listen starts the callback listener; only sign in needs it.
func (a *app) listen(ctx context.Context) error {
	redirectURI, err := a.server.Start(ctx)
	if err != nil {
		return err
	}
	log.Debug().Str("redirect_uri", redirectURI).Msg("Waiting for the GitHub redirect")
	return nil
}

// Close releases the listener, the provider and the storage concurrently.
func (a *app) Close() error {
	var g errgroup.Group
	for _, closeFn := range a.closers {
		g.Go(closeFn)
	}
	return g.Wait()
}

func openRepo(ctx context.Context, cfg config.Config) (sessions.Repo, func() error, error) {
	switch cfg.GetStorageKind() {
	case config.StorageFile:
		store, err := filestore.New(filestore.Options{
			Dir:        cfg.GetStorageFolder(),
			Passphrase: cfg.GetPassphrase(),
		})
		if err != nil {
			return nil, nil, err
		}
		if !store.Encrypted() {
			log.Warn().Str("path", store.Path()).Msg("GHAUTH_PASSPHRASE is not set, sessions are stored unencrypted")
		}
		return store, nil, nil
	case config.StorageSQLite:
		store, err := sqlstore.Open(ctx, cfg.GetStorageFolder())
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StorageMemory:
		return sessions.NewMemoryRepo(), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedStore, cfg.GetStorageKind())
	}
}

func logTransition(t handshake.Transition) {
	event := log.Debug()
	if t.Err != nil {
		event = event.Err(t.Err)
	}
	event.Str("scopes", t.ScopeKey).Str("from", t.From.String()).Str("to", t.To.String()).Msg("Handshake")
}
