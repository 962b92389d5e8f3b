package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/ports"
	"finanzas/internal/sheets"
)

// Consumer delivers recorded-transaction messages until ctx is done.
type Consumer interface {
	ConsumeTransactionRecorded(ctx context.Context, handler func(context.Context, *amqp.TransactionRecordedMessage) error) error
}

// MirrorWorker copies recorded transactions to the ledger mirror.
type MirrorWorker struct {
	mirror sheets.LedgerMirror
	ledger ports.TransactionLister
	logger *log.Logger

	mirrored atomic.Int64
	skipped  atomic.Int64
}

// NewMirrorWorker builds a worker. ledger may be nil, in which case Reconcile
// is a no-op.
func NewMirrorWorker(mirror sheets.LedgerMirror, ledger ports.TransactionLister, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		mirror: mirror,
		ledger: ledger,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes messages until ctx is cancelled.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Mirror worker started")
	return consumer.ConsumeTransactionRecorded(ctx, w.HandleTransactionRecorded)
}

// HandleTransactionRecorded mirrors the transaction carried by msg. A row that
// is already present is not written twice, so redeliveries are harmless.
func (w *MirrorWorker) HandleTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	t, err := msg.Transaction()
	if err != nil {
		return fmt.Errorf("decode transaction %s: %w", msg.ID, err)
	}
	_, err = w.mirrorOne(ctx, t)
	return err
}

// Reconcile walks the ledger from since onwards and mirrors every transaction
// that has no row yet. It recovers from lost messages and worker downtime.
func (w *MirrorWorker) Reconcile(ctx context.Context, since core.Date) (int, error) {
	if w.ledger == nil {
		return 0, nil
	}

	f := core.TransactionFilter{From: since, Page: 1, Limit: core.MaxPageLimit}
	written := 0
	for {
		page, err := w.ledger.ListTransactions(ctx, f)
		if err != nil {
			return written, fmt.Errorf("list transactions: %w", err)
		}
		for _, t := range page.Transactions {
			ok, err := w.mirrorOne(ctx, t)
			if err != nil {
				return written, err
			}
			if ok {
				written++
			}
		}
		if !page.HasNext {
			break
		}
		f.Page++
	}

	w.logger.InfoContext(ctx, "Reconciliation completed",
		"since", since.String(),
		"mirrored", written)
	return written, nil
}

// Stats returns how many rows were written and how many duplicates skipped.
func (w *MirrorWorker) Stats() (mirrored, skipped int64) {
	return w.mirrored.Load(), w.skipped.Load()
}

func (w *MirrorWorker) mirrorOne(ctx context.Context, t core.Transaction) (bool, error) {
	done, err := w.mirror.Mirrored(ctx, t)
	if err != nil {
		return false, fmt.Errorf("check mirror for %s: %w", t.ID, err)
	}
	if done {
		w.skipped.Add(1)
		w.logger.DebugContext(ctx, "Transaction already mirrored", log.FieldTransaction, t.ID)
		return false, nil
	}

	ref, err := w.mirror.Append(ctx, t)
	if err != nil {
		return false, fmt.Errorf("append to mirror: %w", err)
	}
	w.mirrored.Add(1)
	w.logger.InfoContext(ctx, "Mirrored transaction",
		log.FieldTransaction, t.ID,
		log.FieldSheetsRef, ref,
		log.FieldAccountID, t.AccountID,
		log.FieldAmount, t.Amount.String())
	return true, nil
}
