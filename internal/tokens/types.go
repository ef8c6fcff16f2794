// Package tokens implements the client-side managed-token lifecycle: typed
// credentials, a JWT/"Plan B" decoder, an OAuth2 password-grant access-token
// provider, and the background refresh loop that keeps a named set of tokens
// fresh for synchronous lookup.
package tokens

import (
	"sort"
	"time"
)

// Token is an opaque bearer credential. Equality is byte-equality.
type Token string

// Scope is a non-empty printable capability string.
type Scope string

// ScopeSet is an unordered, deduplicated collection of Scope.
type ScopeSet map[Scope]struct{}

// NewScopeSet builds a ScopeSet from a list of scope strings, collapsing
// duplicates and discarding empties.
func NewScopeSet(scopes ...string) ScopeSet {
	s := make(ScopeSet, len(scopes))
	for _, sc := range scopes {
		if sc == "" {
			continue
		}
		s[Scope(sc)] = struct{}{}
	}
	return s
}

// Slice returns the scopes in sorted order, for stable wire encoding and logs.
func (s ScopeSet) Slice() []string {
	out := make([]string, 0, len(s))
	for sc := range s {
		out = append(out, string(sc))
	}
	sort.Strings(out)
	return out
}

// SpaceJoined renders the scope set as the space-separated list the token
// provider's `scope` form field expects.
func (s ScopeSet) SpaceJoined() string {
	slice := s.Slice()
	out := ""
	for i, sc := range slice {
		if i > 0 {
			out += " "
		}
		out += sc
	}
	return out
}

// Credentials is a (id, secret) pair. Both fields are required non-empty.
type Credentials struct {
	ID     string
	Secret string
}

// Validate reports whether both fields of the pair are populated.
func (c Credentials) Validate() error {
	if c.ID == "" || c.Secret == "" {
		return &CredentialsError{Kind: CredentialsDecodingError, Msg: "credentials id/secret must not be empty"}
	}
	return nil
}

// CredentialsPair bundles the client credentials (authenticating the calling
// application) with the user credentials (the resource owner's grant). Both
// are required to drive the password grant.
type CredentialsPair struct {
	Client Credentials
	User   Credentials
}

// ManagedToken is the immutable configuration for one named, scoped token the
// manager keeps refreshed. Name is the lookup key exposed to consumers.
type ManagedToken struct {
	Name   string
	Scopes ScopeSet
}

// AccessToken is the runtime result of one successful provider round-trip.
// Timestamps are UTC wall-clock at second precision.
type AccessToken struct {
	Token         Token
	IssuedAtUTC   time.Time
	ValidUntilUTC time.Time
}

// tokenData is the per-managed-token mutable slot owned exclusively by the
// manager loop goroutine. No other goroutine may read or write it.
type tokenData struct {
	name         string
	scopes       ScopeSet
	token        *Token
	updateLatest time.Time
	warnAfter    time.Time
	validUntil   time.Time
}

func newTokenData(mt ManagedToken, start time.Time) *tokenData {
	return &tokenData{
		name:         mt.Name,
		scopes:       mt.Scopes,
		updateLatest: start,
		warnAfter:    start,
		validUntil:   start,
	}
}
