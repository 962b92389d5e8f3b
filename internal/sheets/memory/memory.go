package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"finanzas/internal/core"
	ports "finanzas/internal/sheets"
)

var _ ports.LedgerMirror = (*Mirror)(nil)

// Mirror keeps mirrored transactions in memory. It backs the worker when no
// spreadsheet is configured and doubles as a test fake.
type Mirror struct {
	mu    sync.Mutex
	rows  []core.Transaction
	index map[string]int
	// Fail, when set, is returned by Append.
	Fail error
}

func New() *Mirror {
	return &Mirror{index: make(map[string]int)}
}

// Append stores the transaction and returns a synthetic row reference.
func (m *Mirror) Append(_ context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", errors.New("transaction id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return "", m.Fail
	}
	m.rows = append(m.rows, t)
	m.index[t.ID] = len(m.rows)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

func (m *Mirror) Mirrored(_ context.Context, t core.Transaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[t.ID]
	return ok, nil
}

// Rows returns a copy of the mirrored transactions in append order.
func (m *Mirror) Rows() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Transaction(nil), m.rows...)
}
