package oauthmodel_test

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/jrsteele09/github-authentication/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestProviderDeniedError(t *testing.T) {
	err := fmt.Errorf("login: %w", &oauthmodel.ProviderDeniedError{
		Code:        oauthmodel.ErrorAccessDenied,
		Description: "The user has denied your application access.",
	})

	require.True(t, errors.Is(err, oauthmodel.ErrProviderDeniedAuthorization))
	require.False(t, errors.Is(err, oauthmodel.ErrTokenExchangeFailed))

	var denied *oauthmodel.ProviderDeniedError
	require.True(t, errors.As(err, &denied))
	require.Equal(t, "access_denied", denied.Code)
	require.Contains(t, err.Error(), "access_denied")
	require.Contains(t, err.Error(), "denied your application")
}

func TestParseCallbackParameters(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    oauthmodel.CallbackParameters
		isError bool
		isEmpty bool
	}{
		{
			name:  "code and state",
			query: "code=abc&state=xyz",
			want:  oauthmodel.CallbackParameters{Code: "abc", State: "xyz"},
		},
		{
			name:    "error",
			query:   "error=access_denied&error_description=no+thanks&state=xyz",
			want:    oauthmodel.CallbackParameters{State: "xyz", Error: "access_denied", ErrorDescription: "no thanks"},
			isError: true,
		},
		{
			name:    "nothing",
			query:   "foo=bar",
			isEmpty: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.query)
			require.NoError(t, err)

			got := oauthmodel.ParseCallbackParameters(values)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.isError, got.IsError())
			require.Equal(t, tc.isEmpty, got.IsEmpty())
		})
	}
}
