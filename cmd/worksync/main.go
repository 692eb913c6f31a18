package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/worksync/adapter/api"
	"github.com/felixgeelhaar/worksync/adapter/cli"
	"github.com/felixgeelhaar/worksync/adapter/cli/syncerrors"
	"github.com/felixgeelhaar/worksync/internal/app"
	"github.com/felixgeelhaar/worksync/internal/telemetry"
	"github.com/felixgeelhaar/worksync/pkg/config"
	"github.com/felixgeelhaar/worksync/pkg/observability"
)

func main() {
	// Create context canceled on shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat))
	slog.SetDefault(logger)
	cli.SetLogger(logger)

	shutdownTracing := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    "worksync",
		ServiceVersion: cli.Version,
		Endpoint:       cfg.OTELEndpoint,
		Insecure:       cfg.OTELInsecure,
	}, logger)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	// Try to initialize the full container
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			// Lets version and migrate run without a working database.
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
			cli.SetApp(&cli.App{Config: cfg})
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()
		cli.SetApp(newCLIApp(cfg, container, logger))
	}

	// Register commands
	cli.AddCommand(syncerrors.Cmd)

	// Execute CLI
	cli.Execute(ctx)
}

func newCLIApp(cfg *config.Config, c *app.Container, logger *slog.Logger) *cli.App {
	syncHandler := api.NewSyncHandler(api.SyncHandlerConfig{
		Ingest:       c.IngestHandler,
		SyncWorkers:  c.SyncWorkersHandler,
		DeleteWorker: c.DeleteWorkerHandler,
		Status:       c.SyncStatusHandler,
		Guard:        c.Guard,
		Logger:       logger,
	})
	errorsHandler := api.NewErrorsHandler(
		c.ListErrorsHandler,
		c.UpdateStatusHandler,
		c.IncrementRetryHandler,
		logger,
	)

	serverCfg := api.DefaultServerConfig()
	if cfg.HTTPAddr != "" {
		serverCfg.Addr = cfg.HTTPAddr
	}

	return &cli.App{
		Config:                cfg,
		Server:                api.NewServer(serverCfg, syncHandler, errorsHandler, c.Health, logger),
		ListErrorsHandler:     c.ListErrorsHandler,
		UpdateStatusHandler:   c.UpdateStatusHandler,
		IncrementRetryHandler: c.IncrementRetryHandler,
		SyncStatusHandler:     c.SyncStatusHandler,
		Puller:                c.Puller,
	}
}
