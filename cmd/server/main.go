package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"order-reconciler/internal/config"
	"order-reconciler/internal/database"
	"order-reconciler/internal/handler"
	"order-reconciler/internal/infrastructure/notify"
	"order-reconciler/internal/infrastructure/payment"
	"order-reconciler/internal/repo"
	"order-reconciler/internal/server"
	"order-reconciler/internal/service"
	"order-reconciler/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()

	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.DB.URL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	dbService := database.New(db)
	defer dbService.Close()

	var provider payment.Provider
	if cfg.ProviderMock {
		logger.Warn("Using in-memory mock payment provider")
		provider = payment.NewMockProvider()
	} else {
		provider = payment.NewHTTPProvider(cfg.ProviderBaseURL, cfg.ProviderSecretKey, cfg.ProviderTimeout)
	}

	dispatcher := notify.NewDispatcher(
		notify.NewEmailNotifier(notify.NewLogMailer(logger), cfg.AdminEmail),
		logger,
		cfg.NotifyTimeout,
	)

	orderRepo := repo.NewOrderRepo(db)
	fulfillmentRepo := repo.NewFulfillmentRepo(db)

	reconciler := service.NewReconciler(db, orderRepo, fulfillmentRepo, dispatcher, logger)
	checkoutService := service.NewCheckoutService(db, orderRepo, provider, dispatcher, service.CheckoutConfig{
		CallbackURL:     cfg.CallbackURL,
		Currency:        cfg.Currency,
		ProviderTimeout: cfg.ProviderTimeout,
	}, logger)
	confirmationService := service.NewConfirmationService(orderRepo, provider, reconciler, cfg.ProviderTimeout, logger)

	srv := server.New(cfg, dbService, server.Handlers{
		Checkout: handler.NewCheckoutHandler(checkoutService, logger),
		Payments: handler.NewPaymentHandler(confirmationService, cfg.SuccessURL, cfg.FailureURL, logger),
		Webhooks: handler.NewWebhookHandler(reconciler, cfg.WebhookSecret, logger),
		Orders:   handler.NewOrderHandler(orderRepo, fulfillmentRepo, logger),
		Admin:    handler.NewAdminHandler(orderRepo, logger),
	}, logger)
	httpServer := srv.HTTPServer()

	sweeper := worker.NewReconciliationWorker(
		orderRepo,
		confirmationService,
		cfg.SweepInterval,
		cfg.SweepMinAge,
		cfg.SweepMaxAge,
		cfg.SweepBatch,
		logger,
	)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting HTTP server",
			zap.String("port", cfg.Port),
			zap.Bool("mock_provider", cfg.ProviderMock))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	wg.Wait()

	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("Pending notifications dropped", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	return zcfg.Build()
}
