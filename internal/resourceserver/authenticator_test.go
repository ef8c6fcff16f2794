package resourceserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kocoro-labs/rusty-tokens-go/internal/tokens"
	"github.com/kocoro-labs/rusty-tokens-go/testutil"
)

// TestAuthenticate_PopulatedScopes matches spec.md §8 scenario 5: a
// successful token-info response decodes into a uid and a non-empty scope
// set that HasScope can query.
func TestAuthenticate_PopulatedScopes(t *testing.T) {
	fake := testutil.NewFakeTokenInfo("test-user-id", []string{"uid", "read", "write"})
	defer fake.Close()

	auth, err := NewAuthenticator(fake.URL(), "", "access_token", nil, zap.NewNop())
	require.NoError(t, err)

	user, err := auth.Authenticate(context.Background(), tokens.Token("abc"))
	require.NoError(t, err)
	require.NotNil(t, user.UID)
	assert.Equal(t, "test-user-id", *user.UID)
	assert.True(t, user.HasScope("read"))
	assert.True(t, user.HasScopes([]string{"uid", "write"}))
	assert.False(t, user.HasScope("admin"))
}

// TestAuthenticate_EmptyScopes matches spec.md §8 scenario 5's counterpart:
// an authenticated user with no scopes at all still decodes successfully but
// fails every HasScope check.
func TestAuthenticate_EmptyScopes(t *testing.T) {
	fake := testutil.NewFakeTokenInfo("test-user-id", nil)
	defer fake.Close()

	auth, err := NewAuthenticator(fake.URL(), "", "access_token", nil, zap.NewNop())
	require.NoError(t, err)

	user, err := auth.Authenticate(context.Background(), tokens.Token("abc"))
	require.NoError(t, err)
	assert.False(t, user.HasScope("uid"))
}

func TestAuthenticate_BadRequestIsNotAuthenticated(t *testing.T) {
	fake := testutil.NewFakeTokenInfo("uid", []string{"uid"})
	defer fake.Close()
	fake.SetStatus(http.StatusBadRequest)

	auth, err := NewAuthenticator(fake.URL(), "", "access_token", nil, zap.NewNop())
	require.NoError(t, err)

	_, err = auth.Authenticate(context.Background(), tokens.Token("bad"))
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAuthenticate_FallsBackWhenPrimaryFails(t *testing.T) {
	fallback := testutil.NewFakeTokenInfo("fallback-user", []string{"uid"})
	defer fallback.Close()

	deadPrimary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		conn, _, _ := hj.Hijack()
		conn.Close()
	}))
	defer deadPrimary.Close()

	auth, err := NewAuthenticator(deadPrimary.URL, fallback.URL(), "access_token", &http.Client{Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	user, err := auth.Authenticate(context.Background(), tokens.Token("abc"))
	require.NoError(t, err)
	require.NotNil(t, user.UID)
	assert.Equal(t, "fallback-user", *user.UID)
}

func TestNewAuthenticator_RejectsEmptyConfig(t *testing.T) {
	_, err := NewAuthenticator("", "", "access_token", nil, zap.NewNop())
	require.Error(t, err)

	_, err = NewAuthenticator("http://example.invalid", "", "", nil, zap.NewNop())
	require.Error(t, err)
}

func TestAuthenticate_UsesCache(t *testing.T) {
	fake := testutil.NewFakeTokenInfo("cached-user", []string{"uid"})
	defer fake.Close()

	auth, err := NewAuthenticator(fake.URL(), "", "access_token", nil, zap.NewNop())
	require.NoError(t, err)
	auth = auth.WithCache(NewInMemoryCache(zap.NewNop()))

	tok := tokens.Token("same-token")
	_, err = auth.Authenticate(context.Background(), tok)
	require.NoError(t, err)

	fake.SetStatus(http.StatusBadRequest)

	user, err := auth.Authenticate(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "cached-user", *user.UID)
}
