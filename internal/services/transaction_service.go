// Package services orchestrates ledger writes and the registry views built on
// top of the engine.
package services

import (
	"context"
	"errors"
	"fmt"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/ports"
)

type ledger interface {
	ports.TransactionWriter
	ports.TransactionLister
}

// EventPublisher announces recorded transactions.
type EventPublisher interface {
	PublishTransactionRecorded(ctx context.Context, t core.Transaction) error
}

// TransactionService records confirmed drafts in the ledger and then
// announces them. It is the persistence collaborator of a review.
type TransactionService struct {
	ledger    ledger
	publisher EventPublisher
	logger    *log.Logger
	events    *log.StructuredLogger
}

func NewTransactionService(l ledger, publisher EventPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		ledger:    l,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentTx),
		events:    log.NewStructuredLogger(logger),
	}
}

// Persist saves the draft. The ledger write is the only step that can fail
// the call: once it succeeded the transaction exists, and a failed
// announcement is logged rather than reported.
func (s *TransactionService) Persist(ctx context.Context, d core.TransactionDraft) (core.Transaction, error) {
	t, err := s.ledger.Persist(ctx, d)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.events.LogTransactionRecorded(ctx, t.ID, t.AccountID, t.CategoryID, string(t.Kind), t.Amount.String())

	if err := s.publish(ctx, t); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction recorded message",
			log.FieldTransaction, t.ID, log.FieldError, err.Error())
	}
	return t, nil
}

func (s *TransactionService) publish(ctx context.Context, t core.Transaction) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping transaction message")
		return nil
	}
	return s.publisher.PublishTransactionRecorded(ctx, t)
}

// List returns a page of the user's transactions.
func (s *TransactionService) List(ctx context.Context, f core.TransactionFilter) (core.TransactionPage, error) {
	if f.UserID == "" {
		return core.TransactionPage{}, errors.New("transaction listing requires a user")
	}
	page, err := s.ledger.ListTransactions(ctx, f)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	return page, nil
}
