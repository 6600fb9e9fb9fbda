package config

import (
	"net"
	"strconv"
	"time"
)

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetAuthURL() string
	GetTokenURL() string
	GetAPIBaseURL() string
	GetCallbackHost() string
	GetCallbackPort() int
	GetCallbackPath() string
	GetCallbackAddress() string
	GetCallbackTimeout() time.Duration
	GetHTTPTimeout() time.Duration
}

type oauthEnv struct {
	ClientID        string        `env:"GHAUTH_CLIENT_ID"`
	ClientSecret    string        `env:"GHAUTH_CLIENT_SECRET"`
	AuthURL         string        `env:"GHAUTH_AUTH_URL"         envDefault:"https://github.com/login/oauth/authorize"`
	TokenURL        string        `env:"GHAUTH_TOKEN_URL"        envDefault:"https://github.com/login/oauth/access_token"`
	APIBaseURL      string        `env:"GHAUTH_API_URL"          envDefault:"https://api.github.com"`
	CallbackHost    string        `env:"GHAUTH_CALLBACK_HOST"    envDefault:"127.0.0.1"`
	CallbackPort    int           `env:"GHAUTH_CALLBACK_PORT"    envDefault:"0"`
	CallbackPath    string        `env:"GHAUTH_CALLBACK_PATH"    envDefault:"/did-authenticate"`
	CallbackTimeout time.Duration `env:"GHAUTH_CALLBACK_TIMEOUT" envDefault:"5m"`
	HTTPTimeout     time.Duration `env:"GHAUTH_HTTP_TIMEOUT"     envDefault:"30s"`
}

type OAuth struct {
	raw oauthEnv
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetClientID() string     { return o.raw.ClientID }
func (o OAuth) GetClientSecret() string { return o.raw.ClientSecret }
func (o OAuth) GetAuthURL() string      { return o.raw.AuthURL }
func (o OAuth) GetTokenURL() string     { return o.raw.TokenURL }
func (o OAuth) GetAPIBaseURL() string   { return o.raw.APIBaseURL }
func (o OAuth) GetCallbackHost() string { return o.raw.CallbackHost }
func (o OAuth) GetCallbackPort() int    { return o.raw.CallbackPort }
func (o OAuth) GetCallbackPath() string { return o.raw.CallbackPath }

// GetCallbackAddress returns host:port for the callback listener.
func (o OAuth) GetCallbackAddress() string {
	return net.JoinHostPort(o.raw.CallbackHost, strconv.Itoa(o.raw.CallbackPort))
}

// GetCallbackTimeout is how long a login waits for the browser redirect.
func (o OAuth) GetCallbackTimeout() time.Duration {
	return o.raw.CallbackTimeout
}

func (o OAuth) GetHTTPTimeout() time.Duration {
	return o.raw.HTTPTimeout
}
