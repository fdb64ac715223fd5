package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NukeThemAII/p2p/internal/application/services"
	"github.com/NukeThemAII/p2p/internal/config"
	"github.com/NukeThemAII/p2p/internal/infrastructure/db/postgres"
	"github.com/NukeThemAII/p2p/internal/infrastructure/gateway/nowpayments"
	"github.com/NukeThemAII/p2p/internal/infrastructure/telegram"
	rest "github.com/NukeThemAII/p2p/internal/interface/api/rest/chi"
	"github.com/NukeThemAII/p2p/internal/interface/api/rest/middleware"
	"github.com/NukeThemAII/p2p/pkg/logger"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	trmcontext "github.com/avito-tech/go-transaction-manager/trm/v2/context"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
)

// Version indicates the current version of the application.
var Version = "1.0.0"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Server run context.
	serverCtx, serverStopCtx := context.WithCancel(context.Background())
	defer serverStopCtx()

	// Load application configurations.
	cfg := config.MustLoad()

	// Create root logger tagged with server version.
	logger := logger.New(cfg).With(serverCtx, "version", Version)

	db, err := postgres.Connect(cfg, logger)
	if err != nil {
		return err
	}

	// Check connectivity and DSN correctness.
	if err = db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to the database: %w", err)
	}

	// Close connection.
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error(err)
		}
		_ = logger.Sync()
	}()

	// Create default transaction manager for database/sql package.
	trManager := manager.Must(
		trmsql.NewDefaultFactory(db),
		manager.WithCtxManager(trmcontext.DefaultManager),
	)

	// Init repositories.
	orderRepo, err := postgres.NewOrderRepository(db, trmsql.DefaultCtxGetter, logger)
	if err != nil {
		return fmt.Errorf("failed to init order repository: %w", err)
	}

	eventRepo, err := postgres.NewPaymentEventRepository(db, trmsql.DefaultCtxGetter, logger)
	if err != nil {
		return fmt.Errorf("failed to init payment event repository: %w", err)
	}

	// Init outbound collaborators.
	gatewayClient, err := nowpayments.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init gateway client: %w", err)
	}

	sender, err := telegram.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init telegram client: %w", err)
	}

	// Init services.
	notifier, err := services.NewNotificationService(sender, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init notification service: %w", err)
	}

	reconciler, err := services.NewReconcileService(orderRepo, eventRepo, notifier, logger)
	if err != nil {
		return fmt.Errorf("failed to init reconcile service: %w", err)
	}

	orderService, err := services.NewOrderService(
		orderRepo, eventRepo, reconciler, gatewayClient, trManager, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init order service: %w", err)
	}

	sweeper, err := services.NewSweeperService(orderRepo, reconciler, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init sweeper service: %w", err)
	}

	// Create root router.
	router := rest.InitChi(logger)

	// Internal API guarded by the service token.
	rest.NewOrderController(orderService, logger, rest.ChiServerOptions{
		BaseRouter:  router,
		BaseURL:     "/api",
		Middlewares: []rest.MiddlewareFunc{middleware.ServiceAuth(cfg)},
	})

	// Gateway webhook authenticated by the IPN signature.
	rest.NewWebhookController(orderService, reconciler, cfg, logger, rest.ChiServerOptions{
		BaseRouter: router,
	})

	// Start the expiry sweep loop.
	sweeper.Run()
	defer sweeper.Stop()

	// Build HTTP server.
	hs := &http.Server{
		Addr:              cfg.HTTPServer.Address,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:       cfg.HTTPServer.IdleTimeout,
		Handler:           router,
	}

	// Graceful shutdown.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT,
			syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)

		signal := <-sig

		logger.With(serverCtx, "signal", signal.String()).
			Infof("Shutting down server with %s timeout",
				cfg.HTTPServer.ShutdownTimeout)

		if err = hs.Shutdown(serverCtx); err != nil {
			logger.Errorf("graceful shutdown failed: %s", err)
		}
		serverStopCtx()
	}()

	// Start the HTTP server with graceful shutdown.
	logger.Infof("Server %v is running at %v", Version, cfg.HTTPServer.Address)
	if err = hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("run server failed: %w", err)
	}

	// Wait for server context to be stopped or force exit if timeout exceeded.
	select {
	case <-serverCtx.Done():
	case <-time.After(cfg.HTTPServer.ShutdownTimeout):
		return errors.New("graceful shutdown timed out.. forcing exit")
	}

	return nil
}
