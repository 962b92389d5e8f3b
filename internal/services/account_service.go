package services

import (
	"context"
	"fmt"

	"finanzas/internal/core"
	"finanzas/internal/engine"
	"finanzas/internal/log"
	"finanzas/internal/ports"
)

type accountStore interface {
	ports.AccountReader
	ports.AccountWriter
}

// AccountService exposes the account registry with display tiers.
type AccountService struct {
	store  accountStore
	filter engine.EligibilityFilter
	logger *log.Logger
}

func NewAccountService(store accountStore, thresholds engine.Thresholds, logger *log.Logger) *AccountService {
	if logger == nil {
		logger = log.Discard()
	}
	return &AccountService{
		store:  store,
		filter: engine.NewEligibilityFilter(thresholds),
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// TieredAccount is any registry account, active or not, with its tier.
type TieredAccount struct {
	core.Account
	Tier  engine.Tier `json:"tier"`
	Alert string      `json:"alert"`
}

func (s *AccountService) List(ctx context.Context) ([]TieredAccount, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]TieredAccount, len(accounts))
	for i, a := range accounts {
		out[i] = TieredAccount{Account: a, Tier: s.filter.TierFor(a.Balance), Alert: s.filter.Alert(a.Balance)}
	}
	return out, nil
}

// Eligible returns the accounts a transaction may target.
func (s *AccountService) Eligible(ctx context.Context) ([]engine.EligibleAccount, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return s.filter.Filter(accounts), nil
}

// Summary totals balances over all accounts and counts active accounts in
// the low tier.
func (s *AccountService) Summary(ctx context.Context) (core.AccountsSummary, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return core.AccountsSummary{}, fmt.Errorf("list accounts: %w", err)
	}

	var sum core.AccountsSummary
	for _, a := range accounts {
		sum.Accounts++
		sum.TotalBalance = sum.TotalBalance.Add(a.Balance)
		if !a.Active() {
			continue
		}
		sum.Active++
		if s.filter.TierFor(a.Balance) == engine.TierLow {
			sum.LowBalanceCount++
		}
	}
	return sum, nil
}

func (s *AccountService) Create(ctx context.Context, a core.Account) (core.Account, error) {
	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

// SetState activates or deactivates an account. Balances are untouched.
func (s *AccountService) SetState(ctx context.Context, id string, state core.AccountState) (core.Account, error) {
	a, err := s.store.SetAccountState(ctx, id, state)
	if err != nil {
		return core.Account{}, fmt.Errorf("set account state: %w", err)
	}
	s.logger.InfoContext(ctx, "Account state updated", log.FieldAccountID, id, log.FieldState, string(state))
	return a, nil
}

// Update edits name, kind and state. The balance only moves through
// recorded transactions.
func (s *AccountService) Update(ctx context.Context, id string, e core.AccountEdit) (core.Account, error) {
	a, err := s.store.UpdateAccount(ctx, id, e)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	s.logger.InfoContext(ctx, "Account updated", log.FieldAccountID, id, log.FieldState, string(a.State))
	return a, nil
}

// Delete removes an account without transactions.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.logger.InfoContext(ctx, "Account deleted", log.FieldAccountID, id)
	return nil
}
