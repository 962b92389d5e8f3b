// Package ports declares the collaborators the review flow depends on.
package ports

import (
	"context"
	"errors"

	"finanzas/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by a writer that refuses a change the stored
	// rows no longer allow: an overdraft, an inactive account, a duplicate
	// name, or deleting a row transactions still reference.
	ErrConflict = errors.New("conflict")
)

// Ports for outbound adapters.
type (
	AccountReader interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		GetAccount(ctx context.Context, id string) (core.Account, error)
	}

	// AccountWriter manages the registry itself, never balances.
	AccountWriter interface {
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		SetAccountState(ctx context.Context, id string, state core.AccountState) (core.Account, error)
		UpdateAccount(ctx context.Context, id string, e core.AccountEdit) (core.Account, error)
		DeleteAccount(ctx context.Context, id string) error
	}

	CategoryReader interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	CategoryWriter interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, id string) error
	}

	TypeReader interface {
		ListTransactionTypes(ctx context.Context) ([]core.TransactionType, error)
	}

	// TransactionWriter records a draft and applies it to the account balance.
	// It is called at most once per confirmed draft.
	TransactionWriter interface {
		Persist(ctx context.Context, d core.TransactionDraft) (core.Transaction, error)
	}

	TransactionLister interface {
		ListTransactions(ctx context.Context, f core.TransactionFilter) (core.TransactionPage, error)
	}

	// Store bundles everything a backend provides.
	Store interface {
		AccountReader
		AccountWriter
		CategoryReader
		CategoryWriter
		TypeReader
		TransactionWriter
		TransactionLister
		Ping(ctx context.Context) error
		Close() error
	}
)
