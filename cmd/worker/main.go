package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/scholaris-edu/scholaris/internal/app"
	"github.com/scholaris-edu/scholaris/internal/audit"
	"github.com/scholaris-edu/scholaris/internal/authz"
	"github.com/scholaris-edu/scholaris/internal/identity"
	"github.com/scholaris-edu/scholaris/internal/platform/cache"
	"github.com/scholaris-edu/scholaris/internal/platform/db"
	"github.com/scholaris-edu/scholaris/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditService := audit.NewService(audit.NewStore(pool))
	exportJob := jobs.NewAuditExportJob(auditService, cfg.AuditExportDir, logger)

	identityRepo := identity.NewRepository(pool)
	grantRepo := authz.NewRepository(pool)
	grantCache := authz.NewCache(redisClient, cfg.GrantCacheTTL)
	warmupJob := jobs.NewGrantCacheWarmupJob(identityRepo, grantRepo, grantCache, logger)

	exportTask, err := jobs.NewAuditExportTask(jobs.AuditExportPayload{})
	if err != nil {
		logger.Error("build export task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewGrantCacheWarmupTask()
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAuditExport, Handler: exportJob.Handle},
			{Type: jobs.TaskGrantCacheWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.AuditExportCron, Task: exportTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.CacheWarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
