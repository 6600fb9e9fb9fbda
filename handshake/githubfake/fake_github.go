// Package githubfake is an in-process stand-in for GitHub's OAuth and REST
// endpoints. It verifies PKCE and issues opaque tokens.
package githubfake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// User is an account the fake can sign in.
type User struct {
	ID    int64
	Login string
	Name  string
}

type grant struct {
	user        User
	challenge   string
	redirectURI string
	clientID    string
	scope       string
}

// Server fakes github.com/login/oauth and api.github.com.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	nextCode     int
	grants       map[string]grant
	tokens       map[string]User
	failToken    bool
	failProfile  bool
	exchanges    int
	lastScope    string
	lastClientID string
}

func NewServer() *Server {
	f := &Server{
		grants: make(map[string]grant),
		tokens: make(map[string]User),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/oauth/access_token", f.handleToken)
	mux.HandleFunc("GET /user", f.handleUser)
	f.Server = httptest.NewServer(mux)
	return f
}

func (f *Server) AuthURL() string    { return f.URL + "/login/oauth/authorize" }
func (f *Server) TokenURL() string   { return f.URL + "/login/oauth/access_token" }
func (f *Server) APIBaseURL() string { return f.URL }

// SetFailures makes the token or profile endpoint answer 500.
func (f *Server) SetFailures(token, profile bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failToken = token
	f.failProfile = profile
}

// Exchanges returns how many token requests succeeded.
func (f *Server) Exchanges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchanges
}

// LastAuthorization returns the scope and client id of the last approved request.
func (f *Server) LastAuthorization() (scope, clientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastScope, f.lastClientID
}

// Approve plays the user accepting the authorization request at authURL and
// returns the redirect the browser would follow.
func (f *Server) Approve(authURL string, user User) (string, error) {
	q, err := authQuery(authURL)
	if err != nil {
		return "", err
	}
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		return "", fmt.Errorf("authorization request without S256 code challenge")
	}

	f.mu.Lock()
	f.nextCode++
	code := fmt.Sprintf("code-%d", f.nextCode)
	f.grants[code] = grant{
		user:        user,
		challenge:   q.Get("code_challenge"),
		redirectURI: q.Get("redirect_uri"),
		clientID:    q.Get("client_id"),
		scope:       q.Get("scope"),
	}
	f.lastScope, f.lastClientID = q.Get("scope"), q.Get("client_id")
	f.mu.Unlock()

	return redirect(q, url.Values{"code": {code}, "state": {q.Get("state")}})
}

// Deny plays the user declining the request.
func (f *Server) Deny(authURL string) (string, error) {
	q, err := authQuery(authURL)
	if err != nil {
		return "", err
	}
	return redirect(q, url.Values{
		"error":             {"access_denied"},
		"error_description": {"The user has denied your application access."},
		"state":             {q.Get("state")},
	})
}

func authQuery(authURL string) (url.Values, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if q.Get("state") == "" || q.Get("redirect_uri") == "" {
		return nil, fmt.Errorf("authorization request without state or redirect_uri")
	}
	return q, nil
}

func redirect(q url.Values, params url.Values) (string, error) {
	u, err := url.Parse(q.Get("redirect_uri"))
	if err != nil {
		return "", err
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (f *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failToken {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	code := r.PostForm.Get("code")
	g, ok := f.grants[code]
	delete(f.grants, code)

	// GitHub reports a bad code with 200 and an error body.
	switch {
	case !ok:
		writeJSON(w, http.StatusOK, map[string]string{"error": "bad_verification_code", "error_description": "The code passed is incorrect or expired."})
		return
	case r.PostForm.Get("client_id") != g.clientID:
		writeJSON(w, http.StatusOK, map[string]string{"error": "incorrect_client_credentials"})
		return
	case r.PostForm.Get("redirect_uri") != g.redirectURI:
		writeJSON(w, http.StatusOK, map[string]string{"error": "redirect_uri_mismatch"})
		return
	case oauth2.S256ChallengeFromVerifier(r.PostForm.Get("code_verifier")) != g.challenge:
		writeJSON(w, http.StatusOK, map[string]string{"error": "invalid_grant", "error_description": "code_verifier does not match"})
		return
	}

	token := "gho_" + strings.ReplaceAll(code, "-", "")
	f.tokens[token] = g.user
	f.exchanges++
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
		"scope":        strings.ReplaceAll(g.scope, " ", ","),
	})
}

func (f *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failProfile {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Server Error"})
		return
	}

	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	user, ok := f.tokens[token]
	if !found || !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}

	body := map[string]any{"id": user.ID, "login": user.Login}
	if user.Name != "" {
		body["name"] = user.Name
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
