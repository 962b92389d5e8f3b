package sheets

import (
	"context"

	"finanzas/internal/core"
)

// Ports for the ledger mirror. The database stays the source of truth; a
// mirror only receives transactions after they are recorded.
type (
	LedgerWriter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// LedgerIndex answers whether a transaction already has a mirrored row,
	// so that redelivered messages do not produce duplicates.
	LedgerIndex interface {
		Mirrored(ctx context.Context, t core.Transaction) (bool, error)
	}

	LedgerMirror interface {
		LedgerWriter
		LedgerIndex
	}
)
