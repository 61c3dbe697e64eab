package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/application/services"
	"github.com/gwpay/connector/internal/config"
	"github.com/gwpay/connector/internal/infrastructure/events"
	"github.com/gwpay/connector/internal/infrastructure/persistence"
	"github.com/gwpay/connector/internal/infrastructure/persistence/postgres"
	"github.com/gwpay/connector/internal/infrastructure/provider"
	"github.com/gwpay/connector/internal/interfaces/rest/handlers"
	"github.com/gwpay/connector/internal/interfaces/rest/middleware"
	"github.com/gwpay/connector/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting connector service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	chargeRepo := postgres.NewChargeRepository(db)
	credentialRepo := postgres.NewCredentialRepository(db)

	registry := provider.NewRegistry()
	registry.Register("sandbox", provider.NewSandboxClient())
	if cfg.Providers.Worldpay.BaseURL != "" {
		client := provider.NewHTTPProviderClient(cfg.Providers.Worldpay)
		registry.Register("worldpay", provider.NewRetryingClient(client, cfg.Retry))
	}
	if cfg.Providers.Stripe.BaseURL != "" {
		client := provider.NewHTTPProviderClient(cfg.Providers.Stripe)
		registry.Register("stripe", provider.NewRetryingClient(client, cfg.Retry))
	}

	var publisher application.EventPublisher = events.NopPublisher{}
	if cfg.Events.WebhookURL != "" {
		publisher = events.NewWebhookPublisher(cfg.Events.WebhookURL, cfg.Events.Timeout, logger)
	}

	clock := application.SystemClock{}

	admissionService := services.NewAdmissionService(chargeRepo, publisher, clock)
	authoriseService := services.NewAuthoriseService(chargeRepo, credentialRepo, registry, publisher, clock)
	captureService := services.NewCaptureService(chargeRepo, publisher, clock)
	queryService := services.NewQueryService(chargeRepo)

	captureWorker := worker.NewCaptureWorker(
		chargeRepo,
		credentialRepo,
		registry,
		publisher,
		clock,
		cfg.Worker.CaptureInterval,
		cfg.Worker.CaptureBatchSize,
		cfg.Worker.CaptureMaxAttempts,
		logger,
	)

	expiryWorker := worker.NewExpiryWorker(
		chargeRepo,
		publisher,
		clock,
		cfg.Worker.ExpiryInterval,
		cfg.Worker.ExpiryThreshold,
		cfg.Worker.ExpiryBatchSize,
		logger,
	)

	h := handlers.NewHandlers(
		admissionService,
		authoriseService,
		captureService,
		queryService,
		captureWorker,
		expiryWorker,
		logger,
	)

	mux := http.NewServeMux()
	h.Register(mux)

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go captureWorker.Start(workerCtx)
	go expiryWorker.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
}
