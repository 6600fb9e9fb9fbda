package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/github-authentication/events"
	"github.com/jrsteele09/github-authentication/provider"
	"github.com/jrsteele09/github-authentication/secretstore/filestore"
	"github.com/jrsteele09/github-authentication/sessions"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func isolateEnv(t *testing.T, storage string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GHAUTH_DATA_FOLDER", dir)
	t.Setenv("GHAUTH_STORAGE", storage)
	t.Setenv("GHAUTH_ENV", "TEST")
	t.Setenv("GHAUTH_LOG_LEVEL", "error")
	t.Setenv("GHAUTH_PASSPHRASE", "")
	return dir
}

func TestSessionsCmd_MemoryStoreIsEmpty(t *testing.T) {
	isolateEnv(t, "memory")

	out, _, err := execute(t, "sessions", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestSessionsCmd_ReadsFileStore(t *testing.T) {
	dir := isolateEnv(t, "file")

	store, err := filestore.New(filestore.Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), []sessions.Session{{
		ID:           "abc",
		AccountLabel: "octocat",
		AccountID:    "1",
		Scopes:       []string{"user:email"},
		AccessToken:  "gho_secret",
		CreatedAt:    time.Now().UTC(),
	}}))

	out, _, err := execute(t, "sessions", "-o", "json")
	require.NoError(t, err)

	var views []sessionView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "abc", views[0].ID)
	assert.NotContains(t, out, "gho_secret")
}

func TestLogoutCmd_RemovesSession(t *testing.T) {
	dir := isolateEnv(t, "file")

	store, err := filestore.New(filestore.Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), []sessions.Session{
		{ID: "keep", AccountLabel: "a", AccountID: "1", Scopes: []string{"repo"}, AccessToken: "t1"},
		{ID: "drop", AccountLabel: "b", AccountID: "2", Scopes: []string{"gist"}, AccessToken: "t2"},
	}))

	out, errOut, err := execute(t, "logout", "drop")
	require.NoError(t, err)
	assert.Contains(t, out, "drop")
	assert.Contains(t, errOut, "removed drop")

	persisted, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "keep", persisted[0].ID)
}

func TestLogoutCmd_UnknownIDSucceeds(t *testing.T) {
	isolateEnv(t, "memory")

	_, errOut, err := execute(t, "logout", "missing")
	require.NoError(t, err)
	assert.NotContains(t, errOut, "Sessions:")
}

func TestLogoutCmd_RequiresID(t *testing.T) {
	isolateEnv(t, "memory")

	_, _, err := execute(t, "logout")
	require.Error(t, err)
}

func TestLoginCmd_RequiresClientID(t *testing.T) {
	isolateEnv(t, "memory")
	t.Setenv("GHAUTH_CLIENT_ID", "")

	_, _, err := execute(t, "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client id")
}

func TestRootCmd_RejectsUnknownStorage(t *testing.T) {
	isolateEnv(t, "redis")

	_, _, err := execute(t, "sessions")
	require.Error(t, err)
}

type stubProvider struct {
	provider.AuthenticationProvider
	id string
}

func (s stubProvider) ID() string { return s.id }

func (s stubProvider) OnDidChangeSessions(func(events.ChangeEvent)) func() { return func() {} }

func TestConsoleHost_RegistersOnce(t *testing.T) {
	host := newConsoleHost(&bytes.Buffer{}, &bytes.Buffer{})

	require.NoError(t, host.RegisterAuthenticationProvider(stubProvider{id: "github"}))
	err := host.RegisterAuthenticationProvider(stubProvider{id: "github"})
	require.Error(t, err)
	assert.Equal(t, "github", host.authProvider().ID())
	host.close()
}

func TestConsoleHost_PrintsChangesAndErrors(t *testing.T) {
	var errOut bytes.Buffer
	host := newConsoleHost(&bytes.Buffer{}, &errOut)

	host.printChange(events.ChangeEvent{Added: []string{"a"}, Changed: []string{"b"}})
	host.ShowErrorMessage("Sign in failed: denied")

	assert.Contains(t, errOut.String(), "added a; changed b")
	assert.Contains(t, errOut.String(), "Sign in failed: denied")
}
