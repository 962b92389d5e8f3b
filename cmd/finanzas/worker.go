package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"finanzas/internal/cli"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/worker"
)

func workerCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Mirror recorded transactions to the spreadsheet",
		Long: `Consumes transaction messages from the broker and appends them to the
spreadsheet mirror. A periodic reconcile pass copies any ledger entries from the
last RECONCILE_DAYS days that the mirror is still missing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single reconcile pass and exit")
	return cmd
}

func runWorker(ctx context.Context, once bool) error {
	cfg, logger := appConfig, appLogger.WithComponent(log.ComponentWorker)

	backend, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Cleanup()

	mirror, err := cli.NewMirror(ctx, cfg, logger)
	if err != nil {
		return err
	}
	w := worker.NewMirrorWorker(mirror, backend.Store, logger)

	reconcile := func() {
		since := reconcileSince(time.Now(), cfg.ReconcileDays)
		n, err := w.Reconcile(ctx, since)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorContext(ctx, "Reconcile failed", log.FieldError, err.Error())
			return
		}
		logger.InfoContext(ctx, "Reconcile finished", "since", since.String(), "mirrored", n)
	}

	reconcile()
	if once {
		return nil
	}

	consumer, err := cli.NewPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if consumer != nil {
		defer consumer.Close()
		go func() {
			if err := w.Run(ctx, consumer); err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorContext(ctx, "Message consumption failed", log.FieldError, err.Error())
			}
		}()
	} else {
		logger.InfoContext(ctx, "Running reconcile passes only")
	}

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			mirrored, skipped := w.Stats()
			logger.Info("Worker stopped", "mirrored", mirrored, "skipped", skipped)
			return nil
		case <-ticker.C:
			reconcile()
		}
	}
}

// reconcileSince is the first day covered by a reconcile pass of days days
// ending today.
func reconcileSince(now time.Time, days int) core.Date {
	y, m, d := now.UTC().AddDate(0, 0, -(days - 1)).Date()
	return core.NewDate(y, int(m), d)
}
