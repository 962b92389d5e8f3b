package storage

import (
	"context"
	"fmt"
	"strings"

	"finanzas/internal/core"
)

// whereClause renders the filter as a WHERE clause with positional args.
func whereClause(f core.TransactionFilter) (string, []any, error) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if f.UserID != "" {
		add("user_id = ?", f.UserID)
	}
	if !f.From.IsZero() {
		add("date >= ?", f.From.String())
	}
	if !f.To.IsZero() {
		add("date <= ?", f.To.String())
	}
	if f.AccountID != "" {
		add("account_id = ?", f.AccountID)
	}
	if f.CategoryID != "" {
		add("category_id = ?", f.CategoryID)
	}
	if f.Kind != "" {
		add("kind = ?", string(f.Kind))
	}
	if f.MinAmount != nil {
		cents, err := f.MinAmount.Cents()
		if err != nil {
			return "", nil, fmt.Errorf("min amount: %w", err)
		}
		add("amount_cents >= ?", cents)
	}
	if f.MaxAmount != nil {
		cents, err := f.MaxAmount.Cents()
		if err != nil {
			return "", nil, fmt.Errorf("max amount: %w", err)
		}
		add("amount_cents <= ?", cents)
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func orderClause(f core.TransactionFilter) string {
	dir := " ASC"
	if f.Descending {
		dir = " DESC"
	}
	if f.OrderBy == "amount" {
		return " ORDER BY amount_cents" + dir + ", id"
	}
	return " ORDER BY date" + dir + ", created_at" + dir + ", id"
}

// ListTransactions returns one page of the filtered listing. f must be
// normalized.
func (q *Queries) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]TransactionRow, error) {
	where, args, err := whereClause(f)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + orderClause(f) + ` LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset())

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionRow
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

type StatsRow struct {
	Count        int64
	IncomeCents  int64
	ExpenseCents int64
}

// TransactionStats aggregates over the whole filtered set, not just a page.
func (q *Queries) TransactionStats(ctx context.Context, f core.TransactionFilter) (StatsRow, error) {
	where, args, err := whereClause(f)
	if err != nil {
		return StatsRow{}, err
	}
	query := `SELECT COUNT(*),
    COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents ELSE 0 END), 0)
FROM transactions` + where

	var s StatsRow
	err = q.db.QueryRowContext(ctx, query, args...).Scan(&s.Count, &s.IncomeCents, &s.ExpenseCents)
	return s, err
}
