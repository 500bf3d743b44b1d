package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"splitledger/api"
	"splitledger/config"
	"splitledger/database"
	"splitledger/events"
	"splitledger/infrastructure"
	"splitledger/repository"
	"splitledger/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting splitledger...")

	// Apply pending migrations before serving
	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()

	if cfg.NATSEnabled() {
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return err
		}
		defer natsClient.Close()

		if err := natsClient.EnsureStream(infrastructure.LedgerStreamName, infrastructure.AllSubjects()); err != nil {
			return err
		}
		infrastructure.NewEventForwarder(natsClient).Register(eventBus)
	} else {
		log.Info("NATS_SERVERS not set, ledger events stay in process")
	}

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	server := api.NewServer(newServices(uowFactory, cfg))
	httpServer := api.NewHTTPServer(cfg, server)

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", httpServer.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	// Let in-flight event handlers finish before the NATS connection is drained
	eventBus.Wait()

	log.Info("Shutdown completed")
	return nil
}

func newServices(uowFactory service.UnitOfWorkFactory, cfg *config.Config) api.Services {
	return api.Services{
		Users:    service.NewUserService(uowFactory, cfg),
		Expenses: service.NewExpenseService(uowFactory),
		Friends:  service.NewFriendService(uowFactory),
		Groups:   service.NewGroupService(uowFactory),
		Balances: service.NewBalanceService(uowFactory),
		Imports:  service.NewImportService(uowFactory),
		Exports:  service.NewExportService(uowFactory),
	}
}
