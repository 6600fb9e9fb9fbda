package oauthmodel

import (
	"net/url"
	"strings"
)

// Query parameter names of the authorization-code redirect (RFC 6749 §4.1.2).
const (
	ParamCode             = "code"
	ParamState            = "state"
	ParamError            = "error"
	ParamErrorDescription = "error_description"
)

// Error codes the authorization endpoint may put on the redirect.
const (
	// ErrorAccessDenied is sent when the user declines the authorization request.
	// Example: https://localhost/did-authenticate?error=access_denied&state=xyz
	ErrorAccessDenied = "access_denied"

	// ErrorInvalidRequest is used locally when the redirect carries a state but no code.
	ErrorInvalidRequest = "invalid_request"
)

// CallbackParameters holds the protocol values of an inbound redirect.
type CallbackParameters struct {
	// Code is the authorization code to exchange at the token endpoint.
	// Present on: successful authorization
	// Lifespan: single use, a few minutes at GitHub
	Code string

	// State echoes the correlation token sent in the authorization request.
	// Present on: success and (usually) error redirects
	// Security: must match a pending attempt, otherwise the redirect is dropped
	State string

	// Error is the OAuth error code when authorization failed.
	// Example: "access_denied"
	Error string

	// ErrorDescription is the human-readable explanation of Error.
	// Example: "The user has denied your application access."
	ErrorDescription string
}

// ParseCallbackParameters extracts the redirect parameters from a query.
func ParseCallbackParameters(query url.Values) CallbackParameters {
	return CallbackParameters{
		Code:             strings.TrimSpace(query.Get(ParamCode)),
		State:            strings.TrimSpace(query.Get(ParamState)),
		Error:            strings.TrimSpace(query.Get(ParamError)),
		ErrorDescription: strings.TrimSpace(query.Get(ParamErrorDescription)),
	}
}

// IsError reports whether the redirect carries an error.
func (p CallbackParameters) IsError() bool {
	return p.Error != ""
}

// IsEmpty reports whether none of the redirect parameters are present.
func (p CallbackParameters) IsEmpty() bool {
	return p.State == "" && p.Error == ""
}
