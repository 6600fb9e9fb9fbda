package oauthmodel

import (
	"errors"
	"fmt"
)

var (
	// Login failures, returned to the caller of Provider.Login.
	ErrUserCancelledOrTimedOut     = errors.New("user did not complete authorization")
	ErrProviderDeniedAuthorization = errors.New("provider denied authorization")
	ErrTokenExchangeFailed         = errors.New("token exchange failed")
	ErrProfileFetchFailed          = errors.New("account profile fetch failed")
	ErrStorePersistenceFailed      = errors.New("session persistence failed")
	ErrMissingClientID             = errors.New("oauth client id is not configured")

	// ErrCallbackMismatch is logged for redirects that match no pending
	// attempt. It is never returned to a login caller.
	ErrCallbackMismatch = errors.New("callback does not match a pending authorization")

	// Lifecycle errors.
	ErrNotInitialized         = errors.New("provider is not initialized")
	ErrAlreadyInitialized     = errors.New("provider is already initialized")
	ErrRouteAlreadyRegistered = errors.New("callback route is already registered")
)

// ProviderDeniedError carries the error reported by the identity provider on
// the redirect. It matches ErrProviderDeniedAuthorization with errors.Is.
type ProviderDeniedError struct {
	Code        string
	Description string
}

func (e *ProviderDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s (%s)", ErrProviderDeniedAuthorization, e.Code, e.Description)
	}
	return fmt.Sprintf("%s: %s", ErrProviderDeniedAuthorization, e.Code)
}

func (e *ProviderDeniedError) Is(target error) bool {
	return target == ErrProviderDeniedAuthorization
}
