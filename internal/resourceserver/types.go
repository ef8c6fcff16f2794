// Package resourceserver implements the resource-server side of the bearer
// flow (C6): validating an inbound token against a remote token-info
// endpoint and exposing the resulting identity and scopes.
package resourceserver

import "github.com/kocoro-labs/rusty-tokens-go/internal/tokens"

// AuthenticatedUser is the decoded result of a successful token-info lookup.
// UID is optional: the original source decodes it as a required string, but
// the spec's §9 open question explicitly permits softening a null uid to
// None rather than failing the decode, which this implementation does.
type AuthenticatedUser struct {
	UID    *string
	Scopes tokens.ScopeSet
}

// HasScope reports whether the user holds the given scope.
func (u *AuthenticatedUser) HasScope(scope string) bool {
	if u == nil {
		return false
	}
	_, ok := u.Scopes[tokens.Scope(scope)]
	return ok
}

// HasScopes reports whether the user holds every given scope.
func (u *AuthenticatedUser) HasScopes(scopes []string) bool {
	if u == nil {
		return false
	}
	for _, s := range scopes {
		if !u.HasScope(s) {
			return false
		}
	}
	return true
}
