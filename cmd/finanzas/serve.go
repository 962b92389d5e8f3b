package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"finanzas/internal/cli"
	"finanzas/internal/confirm"
	"finanzas/internal/engine"
	apphttp "finanzas/internal/http"
	"finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/services"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var trustedProxies []string
	var requestsPerMinute int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), trustedProxies, requestsPerMinute)
		},
	}
	cmd.Flags().StringSliceVar(&trustedProxies, "trusted-proxy", nil, "proxy IP whose X-Forwarded-For is honored (repeatable)")
	cmd.Flags().IntVar(&requestsPerMinute, "rate-limit", ratelimit.DefaultConfig().RequestsPerMinute, "mutating requests per client per minute")
	return cmd
}

func runServe(ctx context.Context, trustedProxies []string, requestsPerMinute int) error {
	cfg, logger := appConfig, appLogger

	backend, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Cleanup()
	store := backend.Store

	registry, stopRegistry, err := cli.NewRegistry(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer stopRegistry()

	var publisher services.EventPublisher
	amqpClient, err := cli.NewPublisher(ctx, cfg, logger)
	if err != nil {
		// The ledger stays authoritative; the worker reconciles the mirror later.
		logger.WarnContext(ctx, "AMQP unavailable, transaction messages disabled", log.FieldError, err.Error())
	} else if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	transactions := services.NewTransactionService(store, publisher, logger)
	accounts := services.NewAccountService(store, cfg.Thresholds, logger)
	categories := services.NewCategoryService(store, registry, logger)
	desk := confirm.NewDesk(confirm.Deps{
		Evaluator: engine.New(cfg.Thresholds),
		Accounts:  store,
		Persister: transactions,
		Logger:    logger,
	}, cfg.ReviewTTL)

	limits := ratelimit.DefaultConfig()
	limits.RequestsPerMinute = requestsPerMinute

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Accounts:       accounts,
		Categories:     categories,
		Transactions:   transactions,
		Registry:       registry,
		Reviews:        desk,
		Health:         store,
		Logger:         logger,
		RateLimit:      limits,
		TrustedProxies: trustedProxies,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go desk.Run(sweepCtx, 0)

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "Starting finanzas server",
			"port", cfg.Port, "backend", cfg.DataBackend, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.ErrorContext(ctx, "Server error", log.FieldError, err.Error(), "port", cfg.Port)
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err.Error())
		return err
	}
	logger.Info("Server stopped gracefully", "open_reviews", desk.Len())
	return nil
}
