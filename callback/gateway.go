// Package callback routes inbound OAuth redirects to the pending
// authorization attempt they belong to.
package callback

import (
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/github-authentication/authflow"
	"github.com/jrsteele09/github-authentication/oauthmodel"
)

// DefaultPath is the path component of the redirect URI.
const DefaultPath = "/did-authenticate"

// Disposition reports what HandleCallback did with a URI.
type Disposition int

const (
	// Ignored means the URI is not an OAuth redirect for this provider.
	Ignored Disposition = iota
	// Dropped means the URI is a redirect but matches no pending attempt.
	Dropped
	// Delivered means a pending attempt was resolved, successfully or not.
	Delivered
)

func (d Disposition) String() string {
	switch d {
	case Ignored:
		return "ignored"
	case Dropped:
		return "dropped"
	case Delivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// Resolver completes pending attempts. *authflow.Registry implements it.
type Resolver interface {
	Resolve(state string, outcome authflow.Outcome) bool
}

// Handler receives inbound redirect URIs.
type Handler interface {
	HandleCallback(uri string) Disposition
}

// RouteInstaller is the host mechanism that delivers inbound URIs to a Handler.
type RouteInstaller interface {
	InstallCallbackRoute(h Handler) error
}

// Gateway parses inbound redirects and resolves the matching attempt.
type Gateway struct {
	path     string
	resolver Resolver

	mu         sync.Mutex
	registered bool
}

var _ Handler = (*Gateway)(nil)

// NewGateway creates a gateway accepting redirects whose path is callbackPath.
func NewGateway(callbackPath string, resolver Resolver) *Gateway {
	if callbackPath == "" {
		callbackPath = DefaultPath
	}
	if !strings.HasPrefix(callbackPath, "/") {
		callbackPath = "/" + callbackPath
	}
	return &Gateway{path: callbackPath, resolver: resolver}
}

// Path returns the redirect path the gateway accepts.
func (g *Gateway) Path() string {
	return g.path
}

// Register installs the gateway as the process's only callback route.
func (g *Gateway) Register(installer RouteInstaller) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.registered {
		return oauthmodel.ErrRouteAlreadyRegistered
	}
	if err := installer.InstallCallbackRoute(g); err != nil {
		return err
	}
	g.registered = true
	return nil
}

// HandleCallback routes an inbound redirect URI. URIs of another shape are
// ignored; redirects for unknown states are dropped. It never fails.
func (g *Gateway) HandleCallback(uri string) Disposition {
	u, err := url.Parse(uri)
	if err != nil {
		log.Debug().Err(err).Msg("Ignoring unparsable callback uri")
		return Ignored
	}
	if strings.TrimSuffix(u.Path, "/") != strings.TrimSuffix(g.path, "/") {
		return Ignored
	}

	params := oauthmodel.ParseCallbackParameters(u.Query())
	if params.IsEmpty() {
		return Ignored
	}

	var outcome authflow.Outcome
	switch {
	case params.IsError():
		outcome.Err = &oauthmodel.ProviderDeniedError{Code: params.Error, Description: params.ErrorDescription}
	case params.Code == "":
		outcome.Err = &oauthmodel.ProviderDeniedError{Code: oauthmodel.ErrorInvalidRequest, Description: "redirect carried no authorization code"}
	default:
		outcome.Code = params.Code
	}

	if !g.resolver.Resolve(params.State, outcome) {
		log.Debug().
			Err(oauthmodel.ErrCallbackMismatch).
			Int("state_len", len(params.State)).
			Bool("has_error", params.IsError()).
			Msg("Dropping callback")
		return Dropped
	}

	log.Debug().Bool("has_error", outcome.Err != nil).Msg("Callback delivered")
	return Delivered
}
