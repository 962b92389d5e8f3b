package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the statements used by the repository. Row types mirror the
// table columns; conversion to domain types happens in the repository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type AccountRow struct {
	ID           string
	Name         string
	Kind         string
	BalanceCents int64
	State        string
	CreatedAt    string
}

type CategoryRow struct {
	ID    string
	Label string
	Kind  string
}

type TransactionRow struct {
	ID          string
	UserID      string
	AccountID   string
	CategoryID  string
	Kind        string
	AmountCents int64
	Description string
	Date        string
	CreatedAt   string
}

const accountColumns = `id, name, kind, balance_cents, state, created_at`

const listAccounts = `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at, name`

func (q *Queries) ListAccounts(ctx context.Context) ([]AccountRow, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AccountRow
	for rows.Next() {
		var a AccountRow
		if err := rows.Scan(&a.ID, &a.Name, &a.Kind, &a.BalanceCents, &a.State, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id string) (AccountRow, error) {
	var a AccountRow
	err := q.db.QueryRowContext(ctx, getAccount, id).
		Scan(&a.ID, &a.Name, &a.Kind, &a.BalanceCents, &a.State, &a.CreatedAt)
	return a, err
}

const createAccount = `INSERT INTO accounts (id, name, kind, balance_cents, state, created_at) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, a AccountRow) error {
	_, err := q.db.ExecContext(ctx, createAccount, a.ID, a.Name, a.Kind, a.BalanceCents, a.State, a.CreatedAt)
	return err
}

const setAccountState = `UPDATE accounts SET state = ? WHERE id = ?`

func (q *Queries) SetAccountState(ctx context.Context, id, state string) (int64, error) {
	res, err := q.db.ExecContext(ctx, setAccountState, state, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateAccount = `UPDATE accounts SET name = ?, kind = ?, state = ? WHERE id = ?`

func (q *Queries) UpdateAccount(ctx context.Context, id, name, kind, state string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateAccount, name, kind, state, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAccount = `DELETE FROM accounts WHERE id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const addToBalance = `UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?`

func (q *Queries) AddToBalance(ctx context.Context, id string, deltaCents int64) error {
	_, err := q.db.ExecContext(ctx, addToBalance, deltaCents, id)
	return err
}

const listCategories = `SELECT id, label, kind FROM categories ORDER BY label`

func (q *Queries) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	return q.listLabels(ctx, listCategories)
}

const listTransactionTypes = `SELECT id, label, kind FROM transaction_types ORDER BY label`

func (q *Queries) ListTransactionTypes(ctx context.Context) ([]CategoryRow, error) {
	return q.listLabels(ctx, listTransactionTypes)
}

func (q *Queries) listLabels(ctx context.Context, query string) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CategoryRow
	for rows.Next() {
		var c CategoryRow
		if err := rows.Scan(&c.ID, &c.Label, &c.Kind); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const createCategory = `INSERT INTO categories (id, label, kind) VALUES (?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, c CategoryRow) error {
	_, err := q.db.ExecContext(ctx, createCategory, c.ID, c.Label, c.Kind)
	return err
}

const updateCategory = `UPDATE categories SET label = ?, kind = ? WHERE id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, c CategoryRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCategory, c.Label, c.Kind, c.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countAccountTransactions = `SELECT COUNT(*) FROM transactions WHERE account_id = ?`

func (q *Queries) CountAccountTransactions(ctx context.Context, accountID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAccountTransactions, accountID).Scan(&n)
	return n, err
}

const countCategoryTransactions = `SELECT COUNT(*) FROM transactions WHERE category_id = ?`

func (q *Queries) CountCategoryTransactions(ctx context.Context, categoryID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCategoryTransactions, categoryID).Scan(&n)
	return n, err
}

const insertTransaction = `INSERT INTO transactions
    (id, user_id, account_id, category_id, kind, amount_cents, description, date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, t TransactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		t.ID, t.UserID, t.AccountID, t.CategoryID, t.Kind, t.AmountCents, t.Description, t.Date, t.CreatedAt)
	return err
}

const transactionColumns = `id, user_id, account_id, category_id, kind, amount_cents, description, date, created_at`

func scanTransaction(rows *sql.Rows) (TransactionRow, error) {
	var t TransactionRow
	err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &t.Kind,
		&t.AmountCents, &t.Description, &t.Date, &t.CreatedAt)
	return t, err
}

const pingQuery = `SELECT 1`

func (q *Queries) Ping(ctx context.Context) error {
	var one int
	return q.db.QueryRowContext(ctx, pingQuery).Scan(&one)
}

const categoryExists = `SELECT EXISTS(SELECT 1 FROM categories WHERE id = ?)`

func (q *Queries) CategoryExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := q.db.QueryRowContext(ctx, categoryExists, id).Scan(&ok)
	return ok, err
}
