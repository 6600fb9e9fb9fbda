package handshake

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/jrsteele09/github-authentication/internal/utils"
)

const (
	DefaultAuthURL    = "https://github.com/login/oauth/authorize"
	DefaultTokenURL   = "https://github.com/login/oauth/access_token"
	DefaultAPIBaseURL = "https://api.github.com"

	githubAPIVersion = "2022-11-28"
	maxProfileBytes  = 1 << 20
)

// Profile identifies the GitHub account an access token belongs to.
type Profile struct {
	ID    string
	Label string
}

// userPayload is the subset of GET /user the handshake needs.
// Every field is optional in the wire format.
type userPayload struct {
	ID    *int64  `json:"id"`
	Login *string `json:"login"`
	Name  *string `json:"name"`
}

// fetchProfile resolves the account behind token from {apiBaseURL}/user. The
// client's transport adds the bearer token.
func fetchProfile(ctx context.Context, client *http.Client, apiBaseURL string) (Profile, error) {
	endpoint := strings.TrimSuffix(apiBaseURL, "/") + "/user"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)

	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("profile request returned %s", resp.Status)
	}

	var payload userPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(&payload); err != nil {
		return Profile{}, fmt.Errorf("decoding profile: %w", err)
	}

	id := utils.Value(payload.ID)
	if id == 0 {
		return Profile{}, fmt.Errorf("profile has no account id")
	}
	label := utils.FirstNonEmpty(utils.Value(payload.Login), utils.Value(payload.Name))
	if label == "" {
		return Profile{}, fmt.Errorf("profile has no login")
	}
	return Profile{ID: strconv.FormatInt(id, 10), Label: label}, nil
}

// githubEndpoint builds the oauth2 endpoint. GitHub accepts client
// credentials in the form body.
func githubEndpoint(authURL, tokenURL string) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   utils.FirstNonEmpty(authURL, DefaultAuthURL),
		TokenURL:  utils.FirstNonEmpty(tokenURL, DefaultTokenURL),
		AuthStyle: oauth2.AuthStyleInParams,
	}
}
