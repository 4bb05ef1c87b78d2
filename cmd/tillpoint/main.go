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
	"github.com/joho/godotenv"

	"github.com/tillpoint/tillpoint/internal/app"
	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/observability"
	"github.com/tillpoint/tillpoint/internal/platform/cache"
	"github.com/tillpoint/tillpoint/internal/platform/db"
	"github.com/tillpoint/tillpoint/internal/pos"
	"github.com/tillpoint/tillpoint/internal/procurement"
	"github.com/tillpoint/tillpoint/internal/shared"
	"github.com/tillpoint/tillpoint/internal/suppliers"
	"github.com/tillpoint/tillpoint/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	registerSafeErrors()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, auditLogger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	suppliersRepo := suppliers.NewRepository(dbpool)
	suppliersService := suppliers.NewService(suppliersRepo, auditLogger)
	suppliersHandler := suppliers.NewHandler(logger, suppliersService)

	procurementRepo := procurement.NewRepository(dbpool)
	procurementService := procurement.NewService(procurementRepo, auditLogger, idempotencyStore, metrics)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	posRepo := pos.NewRepository(dbpool)
	posService := pos.NewService(pos.ServiceConfig{
		Carts:       pos.NewCartStore(redisClient, cfg.CartTTL),
		Items:       catalogService,
		Repo:        posRepo,
		Audit:       auditLogger,
		Idempotency: idempotencyStore,
		Metrics:     metrics,
		Receipts:    jobClient,
		ReceiptInfo: pos.ReceiptInfo{
			CompanyName:    cfg.CompanyName,
			CompanyAddress: cfg.CompanyAddress,
			CompanyPhone:   cfg.CompanyPhone,
			Footer:         cfg.ReceiptFooter,
		},
		BlockBelowCost:     cfg.BlockBelowCost,
		AllowNegativeStock: cfg.AllowNegativeStock,
	})
	posHandler := pos.NewHandler(logger, posService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		CatalogHandler:     catalogHandler,
		SuppliersHandler:   suppliersHandler,
		ProcurementHandler: procurementHandler,
		InventoryHandler:   inventoryHandler,
		POSHandler:         posHandler,
		JobHandler:         jobHandler,
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

// registerSafeErrors marks the module sentinels whose text may be surfaced
// to the operator verbatim.
func registerSafeErrors() {
	shared.RegisterSafeError(
		catalog.ErrItemNotFound, catalog.ErrDuplicateCode, catalog.ErrInvalidItem,
		suppliers.ErrSupplierNotFound, suppliers.ErrDuplicateCode, suppliers.ErrInvalidSupplier, suppliers.ErrInvalidAmount,
		procurement.ErrGRVNotFound, procurement.ErrDuplicateNumber, procurement.ErrInvalidGRV,
		procurement.ErrAlreadyCompleted, procurement.ErrItemNotFound, procurement.ErrSupplierNotFound,
		inventory.ErrInvalidQuantity, inventory.ErrInsufficientStock, inventory.ErrUnknownDirection,
		inventory.ErrInvalidAdjustment, inventory.ErrItemNotFound,
		pos.ErrCartNotFound, pos.ErrEmptyCart, pos.ErrItemNotFound, pos.ErrInvalidQuantity,
		pos.ErrInsufficientStock, pos.ErrBelowCost, pos.ErrLineNotFound, pos.ErrNotValidated,
		pos.ErrInsufficientTender, pos.ErrCustomerRequired, pos.ErrUnknownMethod,
		pos.ErrSaleNotFound, pos.ErrDuplicateRequest,
	)
}
