package scopes_test

import (
	"math/rand"
	"testing"

	"github.com/jrsteele09/github-authentication/scopes"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		requested []string
		want      string
	}{
		{"nil uses baseline", nil, scopes.DefaultScope},
		{"empty uses baseline", []string{}, scopes.DefaultScope},
		{"blank entries use baseline", []string{"", "  "}, scopes.DefaultScope},
		{"single scope", []string{"user:email"}, "user:email"},
		{"duplicates collapse", []string{"user:email", "user:email"}, "user:email"},
		{"unsorted input is sorted", []string{"repo", "read:org", "gist"}, "gist read:org repo"},
		{"whitespace trimmed", []string{" repo ", "gist"}, "gist repo"},
		{"space separated entry is split", []string{"repo user:email", "repo"}, "repo user:email"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, scopes.Normalize(tc.requested))
		})
	}
}

func TestNormalize_OrderIndependent(t *testing.T) {
	base := []string{"repo", "gist", "read:org", "user:email", "workflow"}
	want := scopes.Normalize(base)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := append([]string(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		// Duplicating a random element keeps the set unchanged.
		shuffled = append(shuffled, shuffled[rng.Intn(len(shuffled))])
		require.Equal(t, want, scopes.Normalize(shuffled))
	}
}

func TestNormalize_IsIdempotent(t *testing.T) {
	key := scopes.Normalize([]string{"repo", "gist"})
	require.Equal(t, key, scopes.Normalize([]string{key}))
	require.Equal(t, key, scopes.Normalize(scopes.Split(key)))
}

func TestSplit(t *testing.T) {
	require.Equal(t, []string{"gist", "repo"}, scopes.Split("gist repo"))
	require.Empty(t, scopes.Split(""))
}
