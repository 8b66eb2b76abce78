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

	"github.com/leadgate/leadgate/internal/app"
	"github.com/leadgate/leadgate/internal/audit"
	"github.com/leadgate/leadgate/internal/auth"
	"github.com/leadgate/leadgate/internal/gateway"
	"github.com/leadgate/leadgate/internal/guard"
	"github.com/leadgate/leadgate/internal/leads"
	"github.com/leadgate/leadgate/internal/observability"
	"github.com/leadgate/leadgate/internal/platform/cache"
	"github.com/leadgate/leadgate/internal/platform/db"
	"github.com/leadgate/leadgate/internal/policy"
	"github.com/leadgate/leadgate/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Rewritten statements run on a pool that refuses writes.
	queryPool, err := db.NewReadOnly(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres read-only", slog.Any("error", err))
		os.Exit(1)
	}
	defer queryPool.Close()

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

	sessions := auth.NewSessionStore(redisClient, cfg.SessionTTL)

	model, err := policy.NewModel(policy.DefaultConfig())
	if err != nil {
		logger.Error("build access model", slog.Any("error", err))
		os.Exit(1)
	}
	engine := policy.NewEngine(model)

	mode, err := guard.ParseMode(cfg.GuardMode)
	if err != nil {
		logger.Error("parse guard mode", slog.Any("error", err))
		os.Exit(1)
	}
	detector := guard.NewDetector(mode)

	metrics := observability.NewMetrics()
	recorder := audit.NewPGRecorder(pool)
	executor := leads.NewPGExecutor(queryPool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, auth.AcceptAll{})
	authHandler := auth.NewHandler(logger, authService, sessions)

	gatewayService := gateway.NewService(detector, engine, executor, recorder, logger, metrics)
	gatewayHandler := gateway.NewHandler(logger, gatewayService)
	auditHandler := audit.NewHandler(logger, recorder)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Sessions:       sessions,
		AuthHandler:    authHandler,
		GatewayHandler: gatewayHandler,
		AuditHandler:   auditHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
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
