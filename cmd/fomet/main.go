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

	"github.com/fomet/fomet/internal/app"
	"github.com/fomet/fomet/internal/auth"
	dashboardhttp "github.com/fomet/fomet/internal/dashboard/http"
	"github.com/fomet/fomet/internal/dashboard/svg"
	"github.com/fomet/fomet/internal/entry"
	"github.com/fomet/fomet/internal/observability"
	"github.com/fomet/fomet/internal/platform/cache"
	"github.com/fomet/fomet/internal/recordstore"
	"github.com/fomet/fomet/internal/shared"
	"github.com/fomet/fomet/internal/view"
	"github.com/fomet/fomet/jobs"
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
	if !cfg.BackendConfigured() {
		logger.Warn("APPSCRIPT_URL not set, backend calls will fail")
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "fomet_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	idempotencyStore := shared.NewIdempotencyStore(redisClient, 24*time.Hour)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	backend := recordstore.NewClient(cfg.AppscriptURL, nil, logger, recordstore.NewMetrics(metrics.Registerer()))
	referenceCache := recordstore.NewCache(redisClient, cfg.ReferenceCacheTTL).WithLogger(logger)
	reference := recordstore.NewReference(backend, referenceCache)
	if err := referenceCache.ListenForInvalidation(ctx, func(version int64) {
		logger.Info("reference cache invalidated", slog.Int64("version", version))
	}); err != nil {
		logger.Warn("reference invalidation listener", slog.Any("error", err))
	}

	authService := auth.NewService(backend)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	entryService := entry.NewService(backend, logger)
	dashboardHandler := dashboardhttp.NewHandler(
		logger,
		backend,
		reference,
		entryService,
		templates,
		csrfManager,
		idempotencyStore,
		svg.Renderer{},
		recordstore.NewProxy(backend, logger),
	)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	if cfg.BackendConfigured() {
		if _, err := jobClient.EnqueueReferenceRefresh(ctx, "startup"); err != nil {
			logger.Warn("enqueue reference refresh", slog.Any("error", err))
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
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
