package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds per-identity stored grant keys in Redis with a short TTL.
// Mutations invalidate synchronously after commit; a stale read on another
// connection inside the TTL window is acceptable.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a grant cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(identityID int64) string {
	return fmt.Sprintf("scholaris:authz:grants:%d", identityID)
}

// Get returns the cached keys and whether the entry was present.
func (c *Cache) Get(ctx context.Context, identityID int64) ([]string, bool, error) {
	payload, err := c.client.Get(ctx, c.key(identityID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var keys []string
	if err := json.Unmarshal(payload, &keys); err != nil {
		return nil, false, err
	}
	return keys, true, nil
}

// Set stores the keys for one identity.
func (c *Cache) Set(ctx context.Context, identityID int64, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	payload, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(identityID), payload, c.ttl).Err()
}

// Invalidate drops the cached entry for one identity.
func (c *Cache) Invalidate(ctx context.Context, identityID int64) error {
	return c.client.Del(ctx, c.key(identityID)).Err()
}

// CachedGrants is a read-through GrantSource. Cache failures degrade to the
// underlying source rather than failing the authorization decision.
type CachedGrants struct {
	source GrantSource
	cache  *Cache
	logger *slog.Logger
}

// NewCachedGrants wraps source with the cache.
func NewCachedGrants(source GrantSource, cache *Cache, logger *slog.Logger) *CachedGrants {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedGrants{source: source, cache: cache, logger: logger}
}

// KeysFor implements GrantSource.
func (g *CachedGrants) KeysFor(ctx context.Context, identityID int64) ([]string, error) {
	if g.cache != nil {
		keys, hit, err := g.cache.Get(ctx, identityID)
		if err != nil {
			g.logger.Warn("grant cache read", slog.Int64("identity_id", identityID), slog.Any("error", err))
		} else if hit {
			return keys, nil
		}
	}
	keys, err := g.source.KeysFor(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		if err := g.cache.Set(ctx, identityID, keys); err != nil {
			g.logger.Warn("grant cache write", slog.Int64("identity_id", identityID), slog.Any("error", err))
		}
	}
	return keys, nil
}
