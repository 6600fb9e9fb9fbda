// Package scopes canonicalizes requested GitHub OAuth scopes into the key
// that identifies a session.
package scopes

import (
	"sort"
	"strings"
)

// DefaultScope is requested when the caller asks for no scopes. It grants
// read access to the user's email addresses.
const DefaultScope = "user:email"

// Normalize returns the canonical key for a set of requested scopes: entries
// are trimmed, blanks and duplicates dropped, the rest sorted and joined with
// a single space. An empty request yields DefaultScope.
func Normalize(requested []string) string {
	seen := make(map[string]struct{}, len(requested))
	normalized := make([]string, 0, len(requested))
	for _, scope := range requested {
		// An entry may itself hold a space-separated list, e.g. a stored key.
		for _, s := range strings.Fields(scope) {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			normalized = append(normalized, s)
		}
	}
	if len(normalized) == 0 {
		return DefaultScope
	}
	sort.Strings(normalized)
	return strings.Join(normalized, " ")
}

// Split returns the individual scopes of a normalized key.
func Split(key string) []string {
	return strings.Fields(key)
}
