package server

import (
	_ "embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/github-authentication/callback"
	"github.com/jrsteele09/github-authentication/internal/utils"
	"github.com/jrsteele09/github-authentication/oauthmodel"
)

//go:embed templates/callback.html
var callbackHTML string

var callbackTemplate = template.Must(template.New("callback").Parse(callbackHTML))

type callbackPage struct {
	Title   string
	Message string
	Detail  string
	Success bool
}

var (
	pageSignedIn = callbackPage{
		Title:   "Signed in",
		Message: "You have signed in to GitHub. You can close this window and return to the application.",
		Success: true,
	}
	pageUnknown = callbackPage{
		Title:   "Sign in request not recognised",
		Message: "This sign in request has already completed, timed out or was not started by this application. Start the sign in again.",
	}
	pageUnavailable = callbackPage{
		Title:   "Not ready",
		Message: "The application is not ready to receive sign in requests.",
	}
)

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	h := s.callbackHandler()
	if h == nil {
		s.renderPage(w, http.StatusServiceUnavailable, pageUnavailable)
		return
	}

	// Handlers work on absolute URIs, as the browser saw them.
	uri := url.URL{
		Scheme:   "http",
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
	if r.TLS != nil {
		uri.Scheme = "https"
	}

	switch h.HandleCallback(uri.String()) {
	case callback.Delivered:
		params := oauthmodel.ParseCallbackParameters(r.URL.Query())
		switch {
		case params.IsError():
			s.renderPage(w, http.StatusOK, callbackPage{
				Title:   "Sign in failed",
				Message: "GitHub did not authorize the application.",
				Detail:  utils.FirstNonEmpty(params.ErrorDescription, params.Error),
			})
		case params.Code == "":
			s.renderPage(w, http.StatusOK, callbackPage{
				Title:   "Sign in failed",
				Message: "The redirect from GitHub carried no authorization code.",
				Detail:  oauthmodel.ErrorInvalidRequest,
			})
		default:
			s.renderPage(w, http.StatusOK, pageSignedIn)
		}
	default:
		s.renderPage(w, http.StatusBadRequest, pageUnknown)
	}
}

func (s *CallbackServer) renderPage(w http.ResponseWriter, status int, page callbackPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := callbackTemplate.Execute(w, page); err != nil {
		log.Err(err).Msg("Failed to render callback page")
	}
}
