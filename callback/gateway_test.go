package callback_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/github-authentication/authflow"
	"github.com/jrsteele09/github-authentication/callback"
	"github.com/jrsteele09/github-authentication/oauthmodel"
	"github.com/stretchr/testify/require"
)

const testBase = "http://127.0.0.1:49152"

type fakeInstaller struct {
	installed []callback.Handler
	err       error
}

func (f *fakeInstaller) InstallCallbackRoute(h callback.Handler) error {
	if f.err != nil {
		return f.err
	}
	f.installed = append(f.installed, h)
	return nil
}

func setup(t *testing.T) (*callback.Gateway, *authflow.Registry) {
	t.Helper()
	registry := authflow.NewRegistry()
	return callback.NewGateway(callback.DefaultPath, registry), registry
}

func TestGateway_DeliversCode(t *testing.T) {
	gw, registry := setup(t)
	attempt, outcome, err := registry.Begin("user:email", "v")
	require.NoError(t, err)

	d := gw.HandleCallback(testBase + "/did-authenticate?code=abc&state=" + attempt.State)
	require.Equal(t, callback.Delivered, d)

	got := <-outcome
	require.NoError(t, got.Err)
	require.Equal(t, "abc", got.Code)
}

func TestGateway_DeliversProviderError(t *testing.T) {
	gw, registry := setup(t)
	attempt, outcome, err := registry.Begin("user:email", "v")
	require.NoError(t, err)

	d := gw.HandleCallback(testBase + "/did-authenticate?error=access_denied&error_description=denied&state=" + attempt.State)
	require.Equal(t, callback.Delivered, d)

	got := <-outcome
	require.ErrorIs(t, got.Err, oauthmodel.ErrProviderDeniedAuthorization)
	var denied *oauthmodel.ProviderDeniedError
	require.True(t, errors.As(got.Err, &denied))
	require.Equal(t, oauthmodel.ErrorAccessDenied, denied.Code)
	require.Equal(t, "denied", denied.Description)
}

func TestGateway_MissingCodeFailsAttempt(t *testing.T) {
	gw, registry := setup(t)
	attempt, outcome, err := registry.Begin("user:email", "v")
	require.NoError(t, err)

	require.Equal(t, callback.Delivered, gw.HandleCallback(testBase+"/did-authenticate?state="+attempt.State))
	got := <-outcome
	require.ErrorIs(t, got.Err, oauthmodel.ErrProviderDeniedAuthorization)
}

func TestGateway_IgnoresForeignShapes(t *testing.T) {
	gw, registry := setup(t)
	_, _, err := registry.Begin("user:email", "v")
	require.NoError(t, err)

	tests := []struct {
		name string
		uri  string
	}{
		{"other path", testBase + "/favicon.ico"},
		{"no parameters", testBase + "/did-authenticate"},
		{"unrelated parameters", testBase + "/did-authenticate?foo=bar"},
		{"unparsable", "http://[::1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, callback.Ignored, gw.HandleCallback(tc.uri))
		})
	}
	require.Equal(t, 1, registry.Pending())
}

func TestGateway_DropsUnknownState(t *testing.T) {
	gw, registry := setup(t)
	attempt, outcome, err := registry.Begin("user:email", "v")
	require.NoError(t, err)

	require.Equal(t, callback.Dropped, gw.HandleCallback(testBase+"/did-authenticate?code=abc&state=forged"))
	require.Equal(t, callback.Dropped, gw.HandleCallback(testBase+"/did-authenticate?error=access_denied"))

	// The real attempt is still pending and unaffected.
	require.Equal(t, 1, registry.Pending())
	select {
	case <-outcome:
		t.Fatal("attempt must not be resolved by a foreign callback")
	default:
	}

	require.Equal(t, callback.Delivered, gw.HandleCallback(testBase+"/did-authenticate?code=abc&state="+attempt.State))
}

func TestGateway_SecondCallbackIsStale(t *testing.T) {
	gw, registry := setup(t)
	attempt, _, err := registry.Begin("user:email", "v")
	require.NoError(t, err)

	uri := testBase + "/did-authenticate?code=abc&state=" + attempt.State
	require.Equal(t, callback.Delivered, gw.HandleCallback(uri))
	require.Equal(t, callback.Dropped, gw.HandleCallback(uri))
}

func TestGateway_DisambiguatesByState(t *testing.T) {
	gw, registry := setup(t)
	first, firstOutcome, err := registry.Begin("repo", "v1")
	require.NoError(t, err)
	second, secondOutcome, err := registry.Begin("gist", "v2")
	require.NoError(t, err)

	// Deliver in reverse order of creation.
	require.Equal(t, callback.Delivered, gw.HandleCallback(testBase+"/did-authenticate?code=two&state="+second.State))
	require.Equal(t, callback.Delivered, gw.HandleCallback(testBase+"/did-authenticate?code=one&state="+first.State))

	require.Equal(t, "one", (<-firstOutcome).Code)
	require.Equal(t, "two", (<-secondOutcome).Code)
}

func TestGateway_CustomSchemeURI(t *testing.T) {
	registry := authflow.NewRegistry()
	gw := callback.NewGateway("did-authenticate", registry)
	require.Equal(t, "/did-authenticate", gw.Path())

	attempt, _, err := registry.Begin("user:email", "v")
	require.NoError(t, err)
	d := gw.HandleCallback("vscode://vscode.github-authentication/did-authenticate?code=abc&state=" + attempt.State)
	require.Equal(t, callback.Delivered, d)
}

func TestGateway_RegisterOnce(t *testing.T) {
	gw, _ := setup(t)
	installer := &fakeInstaller{}

	require.NoError(t, gw.Register(installer))
	require.ErrorIs(t, gw.Register(installer), oauthmodel.ErrRouteAlreadyRegistered)
	require.Len(t, installer.installed, 1)
}

func TestGateway_RegisterFailureCanBeRetried(t *testing.T) {
	gw, _ := setup(t)
	installer := &fakeInstaller{err: errors.New("port in use")}

	require.ErrorContains(t, gw.Register(installer), "port in use")
	installer.err = nil
	require.NoError(t, gw.Register(installer))
}

func TestDisposition_String(t *testing.T) {
	require.Equal(t, "ignored", callback.Ignored.String())
	require.Equal(t, "dropped", callback.Dropped.String())
	require.Equal(t, "delivered", callback.Delivered.String())
}
