// Package server runs the loopback HTTP listener that receives OAuth
// redirects from the browser and hands them to the callback gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/github-authentication/callback"
)

const (
	DefaultHost     = "127.0.0.1"
	readTimeout     = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Options configure a CallbackServer.
type Options struct {
	Env  string // Environment (e.g. "DEV"); DEV logs every request
	Host string // Loopback address to bind, defaults to 127.0.0.1
	Port int    // 0 picks an ephemeral port
	Path string // Callback path, defaults to callback.DefaultPath
}

// CallbackServer is the local listener the authorization server redirects to.
// It serves a single callback route and delegates every request on it to the
// installed callback.Handler.
type CallbackServer struct {
	env    string
	host   string
	port   int
	path   string
	mux    *http.ServeMux
	routes []string

	mu          sync.RWMutex
	handler     callback.Handler
	httpServer  *http.Server
	listener    net.Listener
	redirectURI string
	stopOnce    sync.Once
}

var _ callback.RouteInstaller = (*CallbackServer)(nil)

// New creates a server. Nothing listens until Start is called.
func New(opts Options) *CallbackServer {
	host := opts.Host
	if host == "" {
		host = DefaultHost
	}
	path := opts.Path
	if path == "" {
		path = callback.DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	s := &CallbackServer{
		env:  opts.Env,
		host: host,
		port: opts.Port,
		path: path,
		mux:  http.NewServeMux(),
	}
	s.initRoutes()
	return s
}

func (s *CallbackServer) initRoutes() {
	s.RegisterRouteFunc("GET "+s.path, ChainMiddleware(s.handleCallback, s.standardMiddleware()...))
}

func (s *CallbackServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *CallbackServer) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// InstallCallbackRoute makes h the receiver of every inbound redirect.
func (s *CallbackServer) InstallCallbackRoute(h callback.Handler) error {
	if h == nil {
		return errors.New("callback handler is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
	return nil
}

func (s *CallbackServer) callbackHandler() callback.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// Start binds the listener and serves in the background until ctx is done or
// Stop is called. It returns the redirect URI to register with the provider.
func (s *CallbackServer) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.redirectURI, nil
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.redirectURI = fmt.Sprintf("http://%s%s", net.JoinHostPort(s.host, strconv.Itoa(s.port)), s.path)
	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: readTimeout,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("Callback server stopped unexpectedly")
		}
	}(s.httpServer)

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	s.logRoutes()
	log.Info().Str("redirect_uri", s.redirectURI).Msg("Callback server listening")
	return s.redirectURI, nil
}

// RedirectURI returns the absolute redirect URI, empty before Start.
func (s *CallbackServer) RedirectURI() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redirectURI
}

// Port returns the bound port once started, otherwise the configured one.
func (s *CallbackServer) Port() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port
}

// Stop gracefully shuts the listener down. Safe to call more than once.
func (s *CallbackServer) Stop() error {
	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}

	var err error
	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = srv.Shutdown(ctx)
		log.Debug().Msg("Callback server stopped")
	})
	return err
}

func (s *CallbackServer) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("Route")
	}
}
