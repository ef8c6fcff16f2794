// Package middleware adapts the resource-server authenticator (C6) into
// standard net/http pre- and post-processing hooks (C7).
package middleware

import (
	"context"

	"github.com/kocoro-labs/rusty-tokens-go/internal/resourceserver"
)

type contextKey int

const userContextKey contextKey = iota

// WithUser attaches an AuthenticatedUser to ctx.
func WithUser(ctx context.Context, user *resourceserver.AuthenticatedUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the AuthenticatedUser attached by the auth
// middleware, if any.
func UserFromContext(ctx context.Context) (*resourceserver.AuthenticatedUser, bool) {
	u, ok := ctx.Value(userContextKey).(*resourceserver.AuthenticatedUser)
	return u, ok && u != nil
}
