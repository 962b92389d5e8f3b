// Package memory is an in-process ledger used by tests and the memory backend.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finanzas/internal/core"
	"finanzas/internal/ports"
)

type Store struct {
	mu           sync.Mutex
	accounts     []core.Account
	categories   []core.Category
	types        []core.TransactionType
	transactions []core.Transaction
	now          func() time.Time
}

var _ ports.Store = (*Store)(nil)

// New returns a store holding copies of the given registries.
func New(accounts []core.Account, categories []core.Category, types []core.TransactionType) *Store {
	return &Store{
		accounts:   append([]core.Account(nil), accounts...),
		categories: dedupe(categories, func(c core.Category) string { return c.ID }),
		types:      dedupe(types, func(t core.TransactionType) string { return t.ID }),
		now:        time.Now,
	}
}

// NewFromFiles seeds the store from pipe-separated text files under base:
//
//	seed_accounts.txt    name|kind|balance|state
//	seed_categories.txt  id|label|kind
//
// Missing files fall back to a small default registry.
func NewFromFiles(base string) *Store {
	var accounts []core.Account
	for i, f := range readRecords(filepath.Join(base, "seed_accounts.txt"), 4) {
		balance, err := core.ParseMoney(f[2])
		if err != nil {
			continue
		}
		state, err := core.ParseAccountState(f[3])
		if err != nil {
			continue
		}
		accounts = append(accounts, core.Account{
			ID:      fmt.Sprintf("acc-%d", i+1),
			Name:    f[0],
			Kind:    f[1],
			Balance: balance,
			State:   state,
		})
	}
	if len(accounts) == 0 {
		accounts = []core.Account{
			{ID: "acc-1", Name: "Cuenta principal", Kind: "checking", Balance: core.MoneyFromInt(150_000), State: core.AccountActive},
			{ID: "acc-2", Name: "Efectivo", Kind: "cash", Balance: core.MoneyFromInt(40_000), State: core.AccountActive},
		}
	}

	var categories []core.Category
	for _, f := range readRecords(filepath.Join(base, "seed_categories.txt"), 3) {
		kind, _ := core.ParseMovementKind(f[2])
		categories = append(categories, core.Category{ID: f[0], Label: f[1], Kind: kind})
	}
	if len(categories) == 0 {
		categories = []core.Category{
			{ID: "salario", Label: "Salario", Kind: core.Income},
			{ID: "alimentacion", Label: "Alimentación", Kind: core.Expense},
			{ID: "transporte", Label: "Transporte", Kind: core.Expense},
		}
	}

	return New(accounts, categories, DefaultTypes())
}

// DefaultTypes is the fixed movement type registry.
func DefaultTypes() []core.TransactionType {
	return []core.TransactionType{
		{ID: "gasto", Label: "Gasto", Kind: core.Expense},
		{ID: "ingreso", Label: "Ingreso", Kind: core.Income},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account(nil), s.accounts...), nil
}

func (s *Store) GetAccount(_ context.Context, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Account{}, fmt.Errorf("account %q: %w", id, ports.ErrNotFound)
	}
	return s.accounts[i], nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	if a.State == "" {
		a.State = core.AccountActive
	}
	if a.Kind == "" {
		a.Kind = "general"
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.Name = strings.TrimSpace(a.Name)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Name, a.Name) {
			return core.Account{}, fmt.Errorf("account %q already exists: %w", a.Name, ports.ErrConflict)
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.accounts = append(s.accounts, a)
	return a, nil
}

func (s *Store) SetAccountState(_ context.Context, id string, state core.AccountState) (core.Account, error) {
	if !state.Valid() {
		return core.Account{}, core.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Account{}, fmt.Errorf("account %q: %w", id, ports.ErrNotFound)
	}
	s.accounts[i].State = state
	return s.accounts[i], nil
}

// UpdateAccount changes name, kind and state. The balance is kept.
func (s *Store) UpdateAccount(_ context.Context, id string, e core.AccountEdit) (core.Account, error) {
	if e.Kind == "" {
		e.Kind = "general"
	}
	if err := e.Validate(); err != nil {
		return core.Account{}, err
	}
	name := strings.TrimSpace(e.Name)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Account{}, fmt.Errorf("account %q: %w", id, ports.ErrNotFound)
	}
	for _, other := range s.accounts {
		if other.ID != id && strings.EqualFold(other.Name, name) {
			return core.Account{}, fmt.Errorf("account %q already exists: %w", name, ports.ErrConflict)
		}
	}
	a := &s.accounts[i]
	a.Name, a.Kind, a.State = name, e.Kind, e.State
	return *a, nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("account %q: %w", id, ports.ErrNotFound)
	}
	if n := s.references(func(t core.Transaction) bool { return t.AccountID == id }); n > 0 {
		return fmt.Errorf("account %q has %d transactions: %w", id, n, ports.ErrConflict)
	}
	s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.categories...), nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Label = strings.TrimSpace(c.Label)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasCategory(c.ID) {
		return core.Category{}, fmt.Errorf("category %q already exists: %w", c.ID, ports.ErrConflict)
	}
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.Label = strings.TrimSpace(c.Label)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(c.ID)
	if i < 0 {
		return core.Category{}, fmt.Errorf("category %q: %w", c.ID, ports.ErrNotFound)
	}
	s.categories[i] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(id)
	if i < 0 {
		return fmt.Errorf("category %q: %w", id, ports.ErrNotFound)
	}
	if n := s.references(func(t core.Transaction) bool { return t.CategoryID == id }); n > 0 {
		return fmt.Errorf("category %q has %d transactions: %w", id, n, ports.ErrConflict)
	}
	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	return nil
}

func (s *Store) ListTransactionTypes(_ context.Context) ([]core.TransactionType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TransactionType(nil), s.types...), nil
}

// Persist applies the same checks as the SQLite ledger under the store lock.
func (s *Store) Persist(_ context.Context, d core.TransactionDraft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(d.AccountID)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("account %q: %w", d.AccountID, ports.ErrNotFound)
	}
	acc := &s.accounts[i]
	if !acc.Active() {
		return core.Transaction{}, fmt.Errorf("account %q is inactive: %w", acc.Name, ports.ErrConflict)
	}
	if !s.hasCategory(d.CategoryID) {
		return core.Transaction{}, fmt.Errorf("category %q: %w", d.CategoryID, ports.ErrNotFound)
	}
	if d.Kind == core.Expense && d.Amount.GreaterThan(acc.Balance) {
		return core.Transaction{}, fmt.Errorf("insufficient funds in %q: %w", acc.Name, ports.ErrConflict)
	}

	acc.Balance = acc.Balance.Add(d.Signed())
	t := core.Transaction{ID: uuid.NewString(), TransactionDraft: d, CreatedAt: s.now().UTC()}
	s.transactions = append(s.transactions, t)
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter) (core.TransactionPage, error) {
	f = f.Normalize()

	s.mu.Lock()
	var matched []core.Transaction
	var stats core.TransactionStats
	for _, t := range s.transactions {
		if f.Matches(t) {
			matched = append(matched, t)
			stats = stats.Add(t)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var c int
		if f.OrderBy == "amount" {
			c = a.Amount.Cmp(b.Amount)
		} else {
			c = a.Date.Compare(b.Date.Time)
			if c == 0 {
				c = a.CreatedAt.Compare(b.CreatedAt)
			}
		}
		if f.Descending {
			return c > 0
		}
		return c < 0
	})

	total := len(matched)
	start := min(f.Offset(), total)
	end := min(start+f.Limit, total)
	return core.NewTransactionPage(matched[start:end], f, total, stats), nil
}

func (s *Store) indexOf(id string) int {
	for i, a := range s.accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) hasCategory(id string) bool {
	return s.categoryIndex(id) >= 0
}

func (s *Store) categoryIndex(id string) int {
	for i, c := range s.categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) references(match func(core.Transaction) bool) int {
	n := 0
	for _, t := range s.transactions {
		if match(t) {
			n++
		}
	}
	return n
}

// readRecords reads non-empty, non-comment lines split on '|' and keeps
// those with exactly n fields.
func readRecords(path string, n int) [][]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out [][]string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) != n {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		out = append(out, fields)
	}
	return out
}

// dedupe keeps the first entry per key, preserving input order.
func dedupe[T any](in []T, key func(T) string) []T {
	seen := map[string]struct{}{}
	out := make([]T, 0, len(in))
	for _, v := range in {
		k := strings.TrimSpace(key(v))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
