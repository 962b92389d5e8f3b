package core

// AccountsSummary aggregates the account registry for the accounts page.
type AccountsSummary struct {
	TotalBalance    Money `json:"total_balance"`
	Accounts        int   `json:"accounts"`
	Active          int   `json:"active"`
	LowBalanceCount int   `json:"low_balance_active"`
}

// TransactionStats summarizes a filtered transaction listing.
type TransactionStats struct {
	Count        int   `json:"count"`
	TotalIncome  Money `json:"total_income"`
	TotalExpense Money `json:"total_expense"`
	Balance      Money `json:"balance"`
}

// TransactionFilter narrows a transaction listing. Zero values mean "any".
type TransactionFilter struct {
	UserID     string
	From       Date
	To         Date
	AccountID  string
	CategoryID string
	Kind       MovementKind
	MinAmount  *Money
	MaxAmount  *Money
	OrderBy    string // "date" or "amount"
	Descending bool
	Page       int
	Limit      int
}

// TransactionPage is one page of a filtered listing plus its statistics.
type TransactionPage struct {
	Transactions []Transaction    `json:"transactions"`
	Page         int              `json:"page"`
	Limit        int              `json:"limit"`
	TotalRecords int              `json:"total_records"`
	TotalPages   int              `json:"total_pages"`
	HasNext      bool             `json:"has_next"`
	HasPrev      bool             `json:"has_prev"`
	Stats        TransactionStats `json:"stats"`
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps paging and ordering to supported values.
func (f TransactionFilter) Normalize() TransactionFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if f.OrderBy != "amount" {
		f.OrderBy = "date"
	}
	return f
}

// Offset returns the number of rows to skip for the current page.
func (f TransactionFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// NewTransactionPage computes paging metadata for a page of results.
func NewTransactionPage(items []Transaction, f TransactionFilter, total int, stats TransactionStats) TransactionPage {
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	if items == nil {
		items = []Transaction{}
	}
	return TransactionPage{
		Transactions: items,
		Page:         f.Page,
		Limit:        f.Limit,
		TotalRecords: total,
		TotalPages:   pages,
		HasNext:      f.Page < pages,
		HasPrev:      f.Page > 1,
		Stats:        stats,
	}
}

// Matches reports whether t satisfies every set criterion of f.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To.Time) {
		return false
	}
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.MinAmount != nil && t.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && t.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}

// Add folds t into the statistics.
func (s TransactionStats) Add(t Transaction) TransactionStats {
	s.Count++
	switch t.Kind {
	case Income:
		s.TotalIncome = s.TotalIncome.Add(t.Amount)
	case Expense:
		s.TotalExpense = s.TotalExpense.Add(t.Amount)
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}
