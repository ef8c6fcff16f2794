package resourceserver

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kocoro-labs/rusty-tokens-go/internal/tokens"
)

func strPtr(s string) *string { return &s }

func TestInMemoryCache_SetGetAndExpiry(t *testing.T) {
	c := NewInMemoryCache(zap.NewNop())
	tok := tokens.Token("tok-1")
	user := &AuthenticatedUser{UID: strPtr("u1"), Scopes: tokens.NewScopeSet("uid", "read")}

	_, ok := c.Get(context.Background(), tok)
	assert.False(t, ok)

	c.Set(context.Background(), tok, user, 50*time.Millisecond)
	got, ok := c.Get(context.Background(), tok)
	require.True(t, ok)
	assert.Equal(t, "u1", *got.UID)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get(context.Background(), tok)
	assert.False(t, ok)
}

func TestRedisCache_RoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCache(client, "rusty-tokens:tokeninfo:", zap.NewNop())
	tok := tokens.Token("tok-2")
	user := &AuthenticatedUser{UID: strPtr("u2"), Scopes: tokens.NewScopeSet("uid")}

	_, ok := c.Get(context.Background(), tok)
	assert.False(t, ok)

	c.Set(context.Background(), tok, user, time.Minute)
	got, ok := c.Get(context.Background(), tok)
	require.True(t, ok)
	assert.Equal(t, "u2", *got.UID)
	assert.True(t, got.HasScope("uid"))
}

func TestRedisCache_ExpiresViaTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCache(client, "rusty-tokens:tokeninfo:", zap.NewNop())
	tok := tokens.Token("tok-3")
	user := &AuthenticatedUser{UID: strPtr("u3"), Scopes: tokens.NewScopeSet()}

	c.Set(context.Background(), tok, user, time.Second)
	mr.FastForward(2 * time.Second)

	_, ok := c.Get(context.Background(), tok)
	assert.False(t, ok)
}
