// Package main is the entry point for the service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsamuelsen/quotes-aggregator/internal/adapters/cache"
	"github.com/jsamuelsen/quotes-aggregator/internal/adapters/clients"
	"github.com/jsamuelsen/quotes-aggregator/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotes-aggregator/internal/adapters/http"
	"github.com/jsamuelsen/quotes-aggregator/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotes-aggregator/internal/app"
	"github.com/jsamuelsen/quotes-aggregator/internal/platform/config"
	"github.com/jsamuelsen/quotes-aggregator/internal/platform/logging"
	"github.com/jsamuelsen/quotes-aggregator/internal/platform/telemetry"
	"github.com/jsamuelsen/quotes-aggregator/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Create health registry
	healthRegistry := ports.NewHealthRegistry()

	// 6. Connect to Redis (fail fast, it is the only persistence)
	redisCache, err := cache.New(cache.Config{
		Address:  cfg.Cache.Address,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}

	defer func() {
		if closeErr := redisCache.Close(); closeErr != nil {
			logger.Error("redis close error", slog.Any("error", closeErr))
		}
	}()

	if err := healthRegistry.Register(redisCache); err != nil {
		return fmt.Errorf("registering redis health check: %w", err)
	}

	// 7. Create one resilient fetcher plus ACL adapter per configured source
	sources := make([]ports.QuoteSource, 0, len(cfg.Sources))

	for _, src := range cfg.Sources {
		fetcher, err := clients.NewFetcher(&clients.Config{
			Name:     src.Name,
			URL:      src.URL,
			Priority: src.Priority,
			Timeout:  src.Timeout,
			Retry: clients.RetryPolicy{
				MaxAttempts:    cfg.Client.Retry.MaxAttempts,
				InitialBackoff: cfg.Client.Retry.InitialInterval,
				MaxBackoff:     cfg.Client.Retry.MaxInterval,
				Multiplier:     cfg.Client.Retry.Multiplier,
				JitterFactor:   cfg.Client.Retry.JitterFactor,
			},
			Breaker: clients.BreakerConfig{
				FailureThreshold: cfg.Client.CircuitBreaker.MaxFailures,
				RecoveryTimeout:  cfg.Client.CircuitBreaker.Timeout,
			},
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("creating fetcher for %q: %w", src.Name, err)
		}

		sources = append(sources, acl.NewSourceClient(acl.SourceClientConfig{
			Fetcher: fetcher,
			Logger:  logger,
		}))
	}

	// 8. Create application services
	aggregator := app.NewAggregator(app.AggregatorConfig{
		Sources: sources,
		Logger:  logger,
	})

	quoteService := app.NewQuoteService(app.QuoteServiceConfig{
		Cache:          redisCache,
		Aggregator:     aggregator,
		Logger:         logger,
		IdempotencyTTL: cfg.Cache.TTL.Idempotency,
		QuoteTTL:       cfg.Cache.TTL.Quote,
		AggregateTTL:   cfg.Cache.TTL.Aggregate,
	})

	// 9. Create handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo)
	quoteHandler := handlers.NewQuoteHandler(quoteService)

	// 10. Create HTTP server
	server := http.New(&cfg.Server, logger)

	// 11. Setup router with all middleware and routes
	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:        logger,
		AppConfig:     &cfg.App,
		HealthHandler: healthHandler,
		QuoteHandler:  quoteHandler,
		Timeout:       http.DefaultRequestTimeout,
	})

	// 12. Start server (non-blocking)
	serverErr := server.Start()

	// 13. Wait for shutdown signal
	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

// waitForShutdown blocks until a shutdown signal is received or server error occurs.
// It then performs graceful shutdown of the HTTP server.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	// Listen for OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		// Server error during startup or runtime
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	// Graceful shutdown sequence
	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	// Stop accepting new requests, drain in-flight
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
