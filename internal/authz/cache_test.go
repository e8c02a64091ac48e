package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, hit, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, 7, []string{PermIPRReview, PermIPRView}))

	keys, hit, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{PermIPRReview, PermIPRView}, keys)

	require.NoError(t, cache.Invalidate(ctx, 7))
	_, hit, err = cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, hit)
}

// An identity with zero grants caches an empty list, which is a hit. Without
// this every request for a grantless identity would fall through to postgres.
func TestCacheEmptySetIsAHit(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 9, nil))
	keys, hit, err := cache.Get(ctx, 9)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Empty(t, keys)
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 7, []string{PermIPRView}))
	mr.FastForward(2 * time.Minute)

	_, hit, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCachedGrantsReadThrough(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	source := stubGrants{keys: map[int64][]string{7: {PermIPRReview}}}
	cached := NewCachedGrants(source, cache, nil)

	keys, err := cached.KeysFor(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{PermIPRReview}, keys)

	// Second read served from the cache even after the source changes.
	source.keys[7] = []string{PermIPRView}
	keys, err = cached.KeysFor(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{PermIPRReview}, keys)
}

func TestCachedGrantsDegradesOnCacheFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	mr.Close()

	source := stubGrants{keys: map[int64][]string{7: {PermIPRReview}}}
	cached := NewCachedGrants(source, cache, nil)

	keys, err := cached.KeysFor(context.Background(), 7)
	require.NoError(t, err, "cache outage must not fail authorization")
	assert.Equal(t, []string{PermIPRReview}, keys)
}
