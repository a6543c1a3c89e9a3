package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tablewise/tablewise/internal/app"
	"github.com/tablewise/tablewise/internal/console"
	consolehttp "github.com/tablewise/tablewise/internal/console/http"
	"github.com/tablewise/tablewise/internal/gateway"
	jobmetrics "github.com/tablewise/tablewise/internal/jobs"
	"github.com/tablewise/tablewise/internal/observability"
	"github.com/tablewise/tablewise/internal/platform/cache"
	"github.com/tablewise/tablewise/internal/shared"
	"github.com/tablewise/tablewise/jobs"
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

	metrics := observability.NewMetrics()
	consoleMetrics, err := console.NewMetrics(metrics.Registerer())
	if err != nil {
		logger.Error("register console metrics", slog.Any("error", err))
		os.Exit(1)
	}
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	gatewayClient := gateway.NewClient(cfg.GatewayURL, gateway.WithTimeout(cfg.GatewayTimeout))
	if err := gatewayClient.Ping(ctx); err != nil {
		logger.Warn("gateway ping", slog.String("url", cfg.GatewayURL), slog.Any("error", err))
	}

	sessionManager := shared.NewSessionManager(redisClient, "tablewise_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	consoleManager := console.NewManager(console.SessionConfig{
		API:          gatewayClient,
		Registry:     console.NewRegistry(console.NewNormalizer(cfg.DashboardMergePeriods)),
		FetchTimeout: cfg.FetchTimeout,
		PollInterval: cfg.PollInterval,
		Logger:       logger.With(slog.String("component", "console")),
		Metrics:      consoleMetrics,
	})
	defer consoleManager.Shutdown()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := jobs.InstanceQueue()
	sweepJob := jobs.NewConsoleSweepJob(consoleManager, cfg.ConsoleIdleTTL, logger, jobMetrics)
	sweepTask, err := jobs.NewConsoleSweepTask(queue, cfg.ConsoleIdleTTL)
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Queues:    map[string]int{queue: 1},
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskConsoleSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ConsoleSweepSpec, Task: sweepTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		logger.Info("starting worker", slog.String("queue", queue))
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker stopped", slog.Any("error", err))
			stop()
		}
	}()

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		ConsoleHandler: consolehttp.NewHandler(logger, consoleManager, sessionManager, cfg.FetchTimeout+5*time.Second),
		JobHandler:     jobs.NewHandler(inspector, queue, logger),
		Metrics:        metrics,
		Checks: map[string]app.ReadinessCheck{
			"redis":   cache.Ping(redisClient),
			"gateway": gatewayClient.Ping,
		},
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
	<-workerDone
}
