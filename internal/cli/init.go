// Package cli provides the initialization steps shared by the finanzas
// subcommands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finanzas/internal/amqp"
	"finanzas/internal/backend"
	"finanzas/internal/cache"
	"finanzas/internal/config"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/ports"
	"finanzas/internal/sheets"
	"finanzas/internal/sheets/google"
	"finanzas/internal/sheets/memory"
)

// registryCacheSize bounds the in-process registry caches. Each holds a
// single listing.
const registryCacheSize = 4

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads .env, then the environment, and validates the
// result.
func LoadAndValidateConfig() (*config.Config, error) {
	LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenStore opens the configured ledger backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.Result, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).Create(ctx, bc)
}

// NewRegistry wraps the store's category and type registries in a cache:
// Redis when REDIS_URL is set, otherwise in-process LRUs swept by manager.
// The returned stop function releases whatever was started.
func NewRegistry(ctx context.Context, cfg *config.Config, store ports.Store, logger *log.Logger) (*cache.Registry, func(), error) {
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		if err := client.Ping(ctx).Err(); err != nil {
			logger.WarnContext(ctx, "Redis unreachable, registry reads will fall through to the store",
				log.FieldError, err.Error())
		}
		registry := cache.NewRegistry(store, store,
			cache.NewRedisCache[[]core.Category](client, "finanzas:registry:", cfg.CacheTTL, logger),
			cache.NewRedisCache[[]core.TransactionType](client, "finanzas:registry:", cfg.CacheTTL, logger))
		return registry, func() { _ = client.Close() }, nil
	}

	categories := cache.NewLRUCache[[]core.Category](registryCacheSize, cfg.CacheTTL)
	types := cache.NewLRUCache[[]core.TransactionType](registryCacheSize, cfg.CacheTTL)
	manager := cache.NewManager(logger)
	manager.Register(categories)
	manager.Register(types)
	manager.StartCleanup(cfg.CacheTTL)
	return cache.NewRegistry(store, store, categories, types), manager.Stop, nil
}

// NewPublisher connects to the broker when AMQP_URL is set. A nil client
// with a nil error means publishing is disabled.
func NewPublisher(ctx context.Context, cfg *config.Config, logger *log.Logger) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		logger.InfoContext(ctx, "AMQP not configured, transaction messages disabled")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, fmt.Errorf("amqp: %w", err)
	}
	logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// NewMirror returns the Google Sheets mirror, or an in-memory one when no
// spreadsheet is configured.
func NewMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.LedgerMirror, error) {
	if !cfg.MirrorEnabled() {
		logger.WarnContext(ctx, "No spreadsheet configured, mirroring to memory only")
		return memory.New(), nil
	}

	serviceAccount, err := google.ReadCredential(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		return nil, err
	}
	client, err := google.ReadCredential(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		return nil, err
	}
	token, err := google.ReadCredential(cfg.GoogleOAuthTokenJSON, cfg.GoogleOAuthTokenFile)
	if err != nil {
		return nil, err
	}

	return google.New(ctx, google.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: serviceAccount,
		OAuthClientJSON:    client,
		OAuthTokenJSON:     token,
	}, logger)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
