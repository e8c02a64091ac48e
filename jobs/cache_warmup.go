package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/scholaris-edu/scholaris/internal/authz"
	jobmetrics "github.com/scholaris-edu/scholaris/internal/jobs"
)

// ActiveIdentitySource lists the identities whose grants are worth warming.
type ActiveIdentitySource interface {
	ListActiveIDs(ctx context.Context) ([]int64, error)
}

// GrantCacheWarmupJob pre-populates the grant cache for all active
// identities so that the first request after a cold start does not pay the
// database round trip.
type GrantCacheWarmupJob struct {
	identities ActiveIdentitySource
	source     authz.GrantSource
	cache      *authz.Cache
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
}

// NewGrantCacheWarmupJob constructs the job handler.
func NewGrantCacheWarmupJob(identities ActiveIdentitySource, source authz.GrantSource, cache *authz.Cache, logger *slog.Logger) *GrantCacheWarmupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &GrantCacheWarmupJob{identities: identities, source: source, cache: cache, logger: logger, metrics: defaultJobMetrics}
}

// Handle processes one warmup task.
func (j *GrantCacheWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track(TaskGrantCacheWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := time.Now()
	ids, err := j.identities.ListActiveIDs(ctx)
	if err != nil {
		resultErr = fmt.Errorf("cache warmup list identities: %w", err)
		return resultErr
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			keys, err := j.source.KeysFor(ctx, id)
			if err != nil {
				return fmt.Errorf("cache warmup identity %d: %w", id, err)
			}
			return j.cache.Set(ctx, id, keys)
		})
	}
	if err := g.Wait(); err != nil {
		resultErr = err
		return resultErr
	}
	j.logger.Info("grant cache warmed",
		slog.Int("identities", len(ids)),
		slog.Duration("took", time.Since(start)))
	return resultErr
}
