package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finanzas/internal/core"
)

// TransactionRecordedMessage announces a transaction that reached the ledger.
// It carries the full transaction so consumers never read back from the
// ledger database.
type TransactionRecordedMessage struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AccountID   string    `json:"account_id"`
	CategoryID  string    `json:"category_id"`
	Kind        string    `json:"kind"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	RecordedAt  time.Time `json:"recorded_at"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewTransactionRecordedMessage(t core.Transaction) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		ID:          t.ID,
		UserID:      t.UserID,
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		Kind:        string(t.Kind),
		Amount:      t.Amount.String(),
		Description: t.Description,
		Date:        t.Date.String(),
		RecordedAt:  t.CreatedAt,
		Timestamp:   time.Now(),
	}
}

func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionRecordedMessageFromJSON decodes and validates a message body.
func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message without transaction id")
	}
	if _, err := msg.Transaction(); err != nil {
		return nil, fmt.Errorf("invalid transaction payload: %w", err)
	}
	return &msg, nil
}

// Transaction rebuilds the domain transaction carried by the message.
func (m *TransactionRecordedMessage) Transaction() (core.Transaction, error) {
	kind, err := core.ParseMovementKind(m.Kind)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(m.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", m.Amount, err)
	}
	date, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", m.Date, err)
	}
	return core.Transaction{
		ID: m.ID,
		TransactionDraft: core.TransactionDraft{
			Amount:      amount,
			Kind:        kind,
			AccountID:   m.AccountID,
			CategoryID:  m.CategoryID,
			Description: m.Description,
			Date:        date,
			UserID:      m.UserID,
		},
		CreatedAt: m.RecordedAt,
	}, nil
}
