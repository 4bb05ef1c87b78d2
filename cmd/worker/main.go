package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/tillpoint/tillpoint/internal/app"
	"github.com/tillpoint/tillpoint/internal/observability"
	"github.com/tillpoint/tillpoint/internal/platform/db"
	"github.com/tillpoint/tillpoint/internal/shared"
	"github.com/tillpoint/tillpoint/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

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

	metrics := observability.NewMetrics()
	idempotencyStore := shared.NewIdempotencyStore(pool)

	lowStockTask, err := jobs.NewLowStockScanTask(time.Now().UTC())
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(time.Now().UTC())
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReceiptArchive, Handler: jobs.NewReceiptArchiveHandler(cfg.ReceiptStorageDir, metrics, logger)},
			{Type: jobs.TaskLowStockScan, Handler: jobs.NewLowStockScanHandler(pool, logger)},
			{Type: jobs.TaskIdempotencyCleanup, Handler: jobs.NewIdempotencyCleanupHandler(idempotencyStore, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 5 * * *", Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
