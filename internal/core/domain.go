package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	AccountActive   AccountState = "active"
	AccountInactive AccountState = "inactive"
)

const (
	Income  MovementKind = "income"
	Expense MovementKind = "expense"
)

const maxDescriptionLen = 200

type (
	// AccountState is the lifecycle state of an account.
	AccountState string

	// MovementKind says whether a transaction adds to or takes from a balance.
	MovementKind string

	Date struct {
		time.Time
	}

	// Account is a read-only snapshot of an account in the registry.
	Account struct {
		ID      string       `json:"id"`
		Name    string       `json:"name"`
		Kind    string       `json:"kind"`
		Balance Money        `json:"balance"`
		State   AccountState `json:"state"`
	}

	// AccountEdit is what a registry edit may change. The balance moves only
	// through recorded transactions.
	AccountEdit struct {
		Name  string       `json:"name"`
		Kind  string       `json:"kind"`
		State AccountState `json:"state"`
	}

	// TransactionDraft is an unpersisted, user-proposed transaction.
	TransactionDraft struct {
		Amount      Money        `json:"amount"`
		Kind        MovementKind `json:"kind"`
		AccountID   string       `json:"account_id"`
		CategoryID  string       `json:"category_id"`
		Description string       `json:"description"`
		Date        Date         `json:"date"`
		UserID      string       `json:"user_id,omitempty"`
	}

	// Transaction is a draft that went through persistence.
	Transaction struct {
		ID string `json:"id"`
		TransactionDraft
		CreatedAt time.Time `json:"created_at"`
	}

	Category struct {
		ID    string       `json:"id"`
		Label string       `json:"label"`
		Kind  MovementKind `json:"kind,omitempty"`
	}

	TransactionType struct {
		ID    string       `json:"id"`
		Label string       `json:"label"`
		Kind  MovementKind `json:"kind"`
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountTooLarge     = errors.New("amount exceeds the maximum of 999999999999.99")
	ErrInvalidKind        = errors.New("invalid movement kind")
	ErrInvalidState       = errors.New("invalid account state")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyAccount       = errors.New("empty account")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyAccountName   = errors.New("empty account name")
	ErrNegativeBalance    = errors.New("balance cannot be negative")
	ErrEmptyCategoryLabel = errors.New("empty category label")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
)

// ParseMovementKind accepts the wire values and a few common spellings.
func ParseMovementKind(s string) (MovementKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "ingreso":
		return Income, nil
	case "expense", "gasto":
		return Expense, nil
	default:
		return "", ErrInvalidKind
	}
}

func (k MovementKind) Valid() bool {
	return k == Income || k == Expense
}

func ParseAccountState(s string) (AccountState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "activo":
		return AccountActive, nil
	case "inactive", "inactivo":
		return AccountInactive, nil
	default:
		return "", ErrInvalidState
	}
}

func (s AccountState) Valid() bool {
	return s == AccountActive || s == AccountInactive
}

// Active reports whether the account may be targeted by a transaction.
func (a Account) Active() bool {
	return a.State == AccountActive
}

func (e AccountEdit) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyAccountName
	}
	if !e.State.Valid() {
		return ErrInvalidState
	}
	return nil
}

// Validate accepts an empty kind, meaning the category serves both.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Label) == "" {
		return ErrEmptyCategoryLabel
	}
	if c.Kind != "" && !c.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyAccountName
	}
	if a.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	if a.Balance.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	if !a.State.Valid() {
		return ErrInvalidState
	}
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	// Accept full timestamps as sent by date pickers, keep the calendar day.
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = parsed
	return nil
}

// Validate checks that the draft is structurally complete. This belongs to the
// form layer; the validation engine assumes an already valid draft.
func (t TransactionDraft) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccount
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// Signed returns the amount with the sign it has on the balance.
func (t TransactionDraft) Signed() Money {
	if t.Kind == Expense {
		return Money{}.Sub(t.Amount)
	}
	return t.Amount
}
