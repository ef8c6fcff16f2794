package resourceserver

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kocoro-labs/rusty-tokens-go/internal/tokens"
)

// Cache memoizes a token-info decision so repeated requests bearing the same
// still-valid token don't each round-trip to the token-info endpoint. It is
// an optional optimization: Authenticate works identically, if slower,
// without one configured.
type Cache interface {
	Get(ctx context.Context, token tokens.Token) (*AuthenticatedUser, bool)
	Set(ctx context.Context, token tokens.Token, user *AuthenticatedUser, ttl time.Duration)
}

type inMemoryEntry struct {
	user      *AuthenticatedUser
	expiresAt time.Time
}

// InMemoryCache is a process-local Cache, modeled on the embedding cache's
// RWMutex-guarded map-with-TTL shape.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[tokens.Token]inMemoryEntry
	logger  *zap.Logger
}

func NewInMemoryCache(logger *zap.Logger) *InMemoryCache {
	return &InMemoryCache{entries: make(map[tokens.Token]inMemoryEntry), logger: logger}
}

func (c *InMemoryCache) Get(_ context.Context, token tokens.Token) (*AuthenticatedUser, bool) {
	c.mu.RLock()
	e, ok := c.entries[token]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, token)
		c.mu.Unlock()
		return nil, false
	}
	return e.user, true
}

func (c *InMemoryCache) Set(_ context.Context, token tokens.Token, user *AuthenticatedUser, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = inMemoryEntry{user: user, expiresAt: time.Now().Add(ttl)}
}

// cachedUser is the JSON-serializable wire shape stored in Redis; ScopeSet
// itself has no stable JSON encoding, so it is flattened to a slice.
type cachedUser struct {
	UID    *string  `json:"uid,omitempty"`
	Scopes []string `json:"scope"`
}

// RedisCache shares token-info decisions across a fleet of resource-server
// instances, trading a network hop for avoiding a token-info round-trip.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, prefix: keyPrefix, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, token tokens.Token) (*AuthenticatedUser, bool) {
	raw, err := c.client.Get(ctx, c.prefix+string(token)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("token-info cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var cu cachedUser
	if err := json.Unmarshal(raw, &cu); err != nil {
		c.logger.Warn("token-info cache entry unparsable", zap.Error(err))
		return nil, false
	}
	scopeStrs := make([]string, len(cu.Scopes))
	copy(scopeStrs, cu.Scopes)
	return &AuthenticatedUser{UID: cu.UID, Scopes: tokens.NewScopeSet(scopeStrs...)}, true
}

func (c *RedisCache) Set(ctx context.Context, token tokens.Token, user *AuthenticatedUser, ttl time.Duration) {
	cu := cachedUser{UID: user.UID, Scopes: user.Scopes.Slice()}
	raw, err := json.Marshal(cu)
	if err != nil {
		c.logger.Warn("token-info cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.prefix+string(token), raw, ttl).Err(); err != nil {
		c.logger.Warn("token-info cache write failed", zap.Error(err))
	}
}
