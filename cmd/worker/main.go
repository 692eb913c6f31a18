package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/worksync/internal/app"
	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/outbox"
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
	logger.Info("starting worksync audit worker")

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	// Create event publisher
	var publisher eventbus.Publisher
	rabbitPublisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, eventbus.AuditExchange, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
			publisher = eventbus.NewNoopPublisher(logger)
		} else {
			logger.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
	} else {
		publisher = rabbitPublisher
		defer rabbitPublisher.Close()
		container.Health.Register("rabbitmq", observability.RabbitMQHealthChecker(rabbitPublisher.Ping))
	}

	processorConfig := outbox.DefaultProcessorConfig()
	processorConfig.PollInterval = cfg.OutboxPollInterval
	processorConfig.BatchSize = cfg.OutboxBatchSize
	processorConfig.MaxRetries = cfg.OutboxMaxRetries
	processorConfig.RetentionDays = cfg.OutboxRetentionDays
	processorConfig.CleanupInterval = cfg.OutboxCleanupInterval
	processorConfig.StatsInterval = cfg.OutboxStatsInterval
	processor := outbox.NewProcessor(container.OutboxRepo, publisher, processorConfig, logger)

	logger.Info("starting outbox processor",
		"poll_interval", processorConfig.PollInterval,
		"batch_size", processorConfig.BatchSize,
		"max_retries", processorConfig.MaxRetries,
		"exchange", eventbus.AuditExchange,
	)
	if err := processor.Start(ctx); err != nil {
		logger.Error("failed to start outbox processor", "error", err)
		os.Exit(1)
	}

	if cfg.WorkerHealthAddr != "" {
		healthSrv := &http.Server{
			Addr:              cfg.WorkerHealthAddr,
			Handler:           healthMux(processor, container.Health),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("health server starting", "addr", cfg.WorkerHealthAddr)
			if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down worker")
	processor.Stop()

	stats := processor.GetStats()
	logger.Info("worker stopped",
		"published", stats.PublishedCount,
		"failed", stats.FailedCount,
		"dead", stats.DeadCount,
	)
}

func healthMux(processor *outbox.Processor, health *observability.HealthRegistry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		stats := processor.GetStats()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "ok",
			"running":           stats.IsRunning,
			"published":         stats.PublishedCount,
			"failed":            stats.FailedCount,
			"dead":              stats.DeadCount,
			"lag_seconds":       stats.LagSeconds,
			"last_processed_at": stats.LastProcessedAt,
			"last_error_at":     stats.LastErrorAt,
			"last_error":        stats.LastError,
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		overall := health.Check(checkCtx)
		status := http.StatusOK
		if overall.Status == observability.HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, overall)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
