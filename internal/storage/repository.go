// Package storage is the SQLite ledger: account registry, category and
// transaction type registries, and the transaction journal.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/ports"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

var _ ports.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time: balance checks and updates in Persist must not
	// interleave.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.queries.Ping(ctx)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts := make([]core.Account, len(rows))
	for i, row := range rows {
		accounts[i] = accountFromRow(row)
	}
	return accounts, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %q: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return accountFromRow(row), nil
}

// CreateAccount registers a new account. Names are unique.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.State == "" {
		a.State = core.AccountActive
	}
	if a.Kind == "" {
		a.Kind = "general"
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	balance, err := a.Balance.Cents()
	if err != nil {
		return core.Account{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	err = r.queries.CreateAccount(ctx, AccountRow{
		ID:           a.ID,
		Name:         strings.TrimSpace(a.Name),
		Kind:         a.Kind,
		BalanceCents: balance,
		State:        string(a.State),
		CreatedAt:    r.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.Account{}, fmt.Errorf("account %q already exists: %w", a.Name, ports.ErrConflict)
		}
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	r.logger.InfoContext(ctx, "Account created", log.FieldAccountID, a.ID, log.FieldOperation, log.OpCreate)
	return r.GetAccount(ctx, a.ID)
}

func (r *SQLiteRepository) SetAccountState(ctx context.Context, id string, state core.AccountState) (core.Account, error) {
	if !state.Valid() {
		return core.Account{}, core.ErrInvalidState
	}
	n, err := r.queries.SetAccountState(ctx, id, string(state))
	if err != nil {
		return core.Account{}, fmt.Errorf("set account state: %w", err)
	}
	if n == 0 {
		return core.Account{}, fmt.Errorf("account %q: %w", id, ports.ErrNotFound)
	}
	r.logger.InfoContext(ctx, "Account state changed",
		log.FieldAccountID, id, log.FieldState, string(state), log.FieldOperation, log.OpUpdate)
	return r.GetAccount(ctx, id)
}

// UpdateAccount renames, retypes or changes the state of an account. The
// stored balance is left as is.
func (r *SQLiteRepository) UpdateAccount(ctx context.Context, id string, e core.AccountEdit) (core.Account, error) {
	if e.Kind == "" {
		e.Kind = "general"
	}
	if err := e.Validate(); err != nil {
		return core.Account{}, err
	}
	name := strings.TrimSpace(e.Name)
	n, err := r.queries.UpdateAccount(ctx, id, name, e.Kind, string(e.State))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Account{}, fmt.Errorf("account %q already exists: %w", name, ports.ErrConflict)
		}
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return core.Account{}, fmt.Errorf("account %q: %w", id, ports.ErrNotFound)
	}
	r.logger.InfoContext(ctx, "Account updated", log.FieldAccountID, id, log.FieldOperation, log.OpUpdate)
	return r.GetAccount(ctx, id)
}

// DeleteAccount removes an account no transaction references.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	err := r.deleteReferenced(ctx, "account", id,
		(*Queries).CountAccountTransactions, (*Queries).DeleteAccount)
	if err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Account deleted", log.FieldAccountID, id, log.FieldOperation, log.OpDelete)
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = core.Category{ID: row.ID, Label: row.Label, Kind: core.MovementKind(row.Kind)}
	}
	return out, nil
}

// CreateCategory adds a category. Without an id one is generated.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Label = strings.TrimSpace(c.Label)

	err := r.queries.CreateCategory(ctx, CategoryRow{ID: c.ID, Label: c.Label, Kind: string(c.Kind)})
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, fmt.Errorf("category %q already exists: %w", c.ID, ports.ErrConflict)
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	r.logger.InfoContext(ctx, "Category created", log.FieldCategoryID, c.ID, log.FieldOperation, log.OpCreate)
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.Label = strings.TrimSpace(c.Label)
	n, err := r.queries.UpdateCategory(ctx, CategoryRow{ID: c.ID, Label: c.Label, Kind: string(c.Kind)})
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if n == 0 {
		return core.Category{}, fmt.Errorf("category %q: %w", c.ID, ports.ErrNotFound)
	}
	r.logger.InfoContext(ctx, "Category updated", log.FieldCategoryID, c.ID, log.FieldOperation, log.OpUpdate)
	return c, nil
}

// DeleteCategory removes a category no transaction references.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	err := r.deleteReferenced(ctx, "category", id,
		(*Queries).CountCategoryTransactions, (*Queries).DeleteCategory)
	if err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Category deleted", log.FieldCategoryID, id, log.FieldOperation, log.OpDelete)
	return nil
}

// deleteReferenced counts the transactions pointing at a row and deletes it
// in one SQL transaction, refusing with ports.ErrConflict while any exist.
func (r *SQLiteRepository) deleteReferenced(ctx context.Context, what, id string,
	count func(*Queries, context.Context, string) (int64, error),
	remove func(*Queries, context.Context, string) (int64, error)) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	refs, err := count(q, ctx, id)
	if err != nil {
		return fmt.Errorf("count %s transactions: %w", what, err)
	}
	if refs > 0 {
		return fmt.Errorf("%s %q has %d transactions: %w", what, id, refs, ports.ErrConflict)
	}
	n, err := remove(q, ctx, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%s %q is still referenced: %w", what, id, ports.ErrConflict)
		}
		return fmt.Errorf("delete %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", what, id, ports.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactionTypes(ctx context.Context) ([]core.TransactionType, error) {
	rows, err := r.queries.ListTransactionTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transaction types: %w", err)
	}
	out := make([]core.TransactionType, len(rows))
	for i, row := range rows {
		out[i] = core.TransactionType{ID: row.ID, Label: row.Label, Kind: core.MovementKind(row.Kind)}
	}
	return out, nil
}

// Persist records the draft and applies it to the account balance in one SQL
// transaction. The account is re-read inside the transaction: an inactive
// account or an expense larger than the stored balance is refused with
// ports.ErrConflict, which covers writers racing on the same account.
func (r *SQLiteRepository) Persist(ctx context.Context, d core.TransactionDraft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	acc, err := q.GetAccount(ctx, d.AccountID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("account %q: %w", d.AccountID, ports.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get account: %w", err)
	}
	if acc.State != string(core.AccountActive) {
		return core.Transaction{}, fmt.Errorf("account %q is inactive: %w", acc.Name, ports.ErrConflict)
	}

	ok, err := q.CategoryExists(ctx, d.CategoryID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("check category: %w", err)
	}
	if !ok {
		return core.Transaction{}, fmt.Errorf("category %q: %w", d.CategoryID, ports.ErrNotFound)
	}

	amount, err := d.Amount.Cents()
	if err != nil {
		return core.Transaction{}, err
	}
	delta := amount
	if d.Kind == core.Expense {
		if amount > acc.BalanceCents {
			return core.Transaction{}, fmt.Errorf("insufficient funds in %q: %w", acc.Name, ports.ErrConflict)
		}
		delta = -amount
	} else if acc.BalanceCents > math.MaxInt64-amount {
		return core.Transaction{}, fmt.Errorf("balance of %q would overflow: %w", acc.Name, core.ErrAmountTooLarge)
	}

	created := r.now().UTC()
	row := TransactionRow{
		ID:          uuid.NewString(),
		UserID:      d.UserID,
		AccountID:   d.AccountID,
		CategoryID:  d.CategoryID,
		Kind:        string(d.Kind),
		AmountCents: amount,
		Description: strings.TrimSpace(d.Description),
		Date:        d.Date.String(),
		CreatedAt:   created.Format(time.RFC3339Nano),
	}
	if err := q.InsertTransaction(ctx, row); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if err := q.AddToBalance(ctx, d.AccountID, delta); err != nil {
		return core.Transaction{}, fmt.Errorf("update balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit transaction: %w", err)
	}

	r.logger.InfoContext(ctx, "Transaction saved to SQLite",
		log.NewFields().
			WithTransaction(row.AccountID, row.CategoryID, row.Kind, d.Amount.String()).
			WithOperation(log.OpPersist).ToSlice()...)

	return transactionFromRow(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter) (core.TransactionPage, error) {
	f = f.Normalize()

	stats, err := r.queries.TransactionStats(ctx, f)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("transaction stats: %w", err)
	}
	rows, err := r.queries.ListTransactions(ctx, f)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}

	items := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return core.TransactionPage{}, err
		}
		items = append(items, t)
	}

	income := core.MoneyFromCents(stats.IncomeCents)
	expense := core.MoneyFromCents(stats.ExpenseCents)
	return core.NewTransactionPage(items, f, int(stats.Count), core.TransactionStats{
		Count:        int(stats.Count),
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
	}), nil
}

func accountFromRow(row AccountRow) core.Account {
	return core.Account{
		ID:      row.ID,
		Name:    row.Name,
		Kind:    row.Kind,
		Balance: core.MoneyFromCents(row.BalanceCents),
		State:   core.AccountState(row.State),
	}
}

func transactionFromRow(row TransactionRow) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: bad date %q: %w", row.ID, row.Date, err)
	}
	created, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: bad created_at %q: %w", row.ID, row.CreatedAt, err)
	}
	return core.Transaction{
		ID: row.ID,
		TransactionDraft: core.TransactionDraft{
			Amount:      core.MoneyFromCents(row.AmountCents),
			Kind:        core.MovementKind(row.Kind),
			AccountID:   row.AccountID,
			CategoryID:  row.CategoryID,
			Description: row.Description,
			Date:        date,
			UserID:      row.UserID,
		},
		CreatedAt: created,
	}, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
