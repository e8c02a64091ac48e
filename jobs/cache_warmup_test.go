package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholaris-edu/scholaris/internal/authz"
)

type fixedIdentities []int64

func (f fixedIdentities) ListActiveIDs(_ context.Context) ([]int64, error) {
	return f, nil
}

type fixedGrants map[int64][]string

func (f fixedGrants) KeysFor(_ context.Context, identityID int64) ([]string, error) {
	return f[identityID], nil
}

func TestGrantCacheWarmupJob(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := authz.NewCache(client, time.Minute)

	grants := fixedGrants{
		1: {"ipr_review"},
		2: nil,
	}
	job := NewGrantCacheWarmupJob(fixedIdentities{1, 2}, grants, cache, nil)

	task, err := NewGrantCacheWarmupTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	keys, hit, err := cache.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"ipr_review"}, keys)

	keys, hit, err = cache.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, hit, "grantless identities cache an empty set")
	assert.Empty(t, keys)
}
