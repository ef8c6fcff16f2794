package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kocoro-labs/rusty-tokens-go/internal/resourceserver"
	"github.com/kocoro-labs/rusty-tokens-go/internal/tokens"
)

// Authenticate is the pre-processing hook (C7): it extracts a bearer token
// from the Authorization header, validates it via authenticator, and either
// attaches the resulting AuthenticatedUser to the request context or fails
// the request with 401.
func Authenticate(authenticator *resourceserver.Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearer(r)
			if !ok {
				sendUnauthorized(w, "missing bearer token")
				return
			}

			user, err := authenticator.Authenticate(r.Context(), tokens.Token(token))
			if err != nil {
				logger.Debug("bearer token rejected", zap.Error(err))
				sendUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearer(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func sendUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer`)
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

// RequireScopes returns a handler-level check: if the request's
// AuthenticatedUser lacks any of the given scopes, it fails with 403. Must
// run after Authenticate.
func RequireScopes(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())
			if !user.HasScopes(scopes) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"insufficient scope"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
