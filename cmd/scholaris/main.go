package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scholaris-edu/scholaris/internal/app"
	"github.com/scholaris-edu/scholaris/internal/audit"
	"github.com/scholaris-edu/scholaris/internal/authz"
	"github.com/scholaris-edu/scholaris/internal/identity"
	"github.com/scholaris-edu/scholaris/internal/ipr"
	"github.com/scholaris-edu/scholaris/internal/modules"
	"github.com/scholaris-edu/scholaris/internal/observability"
	"github.com/scholaris-edu/scholaris/internal/patent"
	"github.com/scholaris-edu/scholaris/internal/platform/cache"
	"github.com/scholaris-edu/scholaris/internal/platform/db"
	"github.com/scholaris-edu/scholaris/internal/research"
	"github.com/scholaris-edu/scholaris/internal/shared"
	"github.com/scholaris-edu/scholaris/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie)
	identityRepo := identity.NewRepository(dbpool)

	catalog := authz.DefaultCatalog()
	routeMap, err := authz.DefaultRouteMap(catalog)
	if err != nil {
		logger.Error("build route map", slog.Any("error", err))
		os.Exit(1)
	}

	grantRepo := authz.NewRepository(dbpool)
	grantCache := authz.NewCache(redisClient, cfg.GrantCacheTTL)
	cachedGrants := authz.NewCachedGrants(grantRepo, grantCache, logger)
	engine := authz.NewEngine(routeMap, cachedGrants)
	authzService := authz.NewService(grantRepo, catalog, engine, grantCache, logger)

	metrics := observability.NewMetrics()
	authzMiddleware := authz.Middleware{Engine: engine, Logger: logger, Metrics: metrics}
	permissionsHandler := authz.NewHandler(logger, authzService, catalog, identityRepo, authzMiddleware)

	iprService := ipr.NewService(ipr.NewRepository(dbpool))
	iprHandler := ipr.NewHandler(logger, iprService)
	researchHandler := research.NewHandler(logger, research.NewRepository(dbpool))
	patentHandler := patent.NewHandler(logger, patent.NewRepository(dbpool))
	usersHandler := identity.NewHandler(logger, identityRepo)
	modulesHandler := modules.NewHandler(logger, modules.NewRepository(dbpool))

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	auditService := audit.NewService(audit.NewStore(dbpool))
	auditHandler := audit.NewHandler(logger, auditService, jobsClient)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		Identities:         identityRepo,
		AuthzMiddleware:    authzMiddleware,
		PermissionsHandler: permissionsHandler,
		IPRHandler:         iprHandler,
		ResearchHandler:    researchHandler,
		PatentHandler:      patentHandler,
		UsersHandler:       usersHandler,
		ModulesHandler:     modulesHandler,
		AuditHandler:       auditHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
