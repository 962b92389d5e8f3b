package engine

import "finanzas/internal/core"

// Tier is a display-only health classification of an account balance.
type Tier string

const (
	TierHealthy  Tier = "healthy"
	TierModerate Tier = "moderate"
	TierLow      Tier = "low"
)

// EligibleAccount is an account that may be targeted by a transaction,
// together with its display tier.
type EligibleAccount struct {
	core.Account
	Tier  Tier   `json:"tier"`
	Alert string `json:"alert"`
}

// EligibilityFilter selects transaction targets from an account registry.
type EligibilityFilter struct {
	thresholds Thresholds
}

func NewEligibilityFilter(t Thresholds) EligibilityFilter {
	return EligibilityFilter{thresholds: t}
}

// Filter drops inactive accounts and tags the rest with a tier. Input order
// is preserved; the result is empty, never nil, when nothing is active.
func (f EligibilityFilter) Filter(accounts []core.Account) []EligibleAccount {
	out := make([]EligibleAccount, 0, len(accounts))
	for _, a := range accounts {
		if !f.Eligible(a) {
			continue
		}
		out = append(out, EligibleAccount{
			Account: a,
			Tier:    f.TierFor(a.Balance),
			Alert:   f.Alert(a.Balance),
		})
	}
	return out
}

// Eligible reports whether a may be the target of a transaction.
func (f EligibilityFilter) Eligible(a core.Account) bool {
	return a.State == core.AccountActive
}

// TierFor classifies a balance. Tiers never block a transaction.
func (f EligibilityFilter) TierFor(balance core.Money) Tier {
	switch {
	case balance.GreaterThan(f.thresholds.HealthyFloor):
		return TierHealthy
	case balance.GreaterThan(f.thresholds.ModerateFloor):
		return TierModerate
	default:
		return TierLow
	}
}

// Alert returns the short balance notice shown next to an account selector.
func (f EligibilityFilter) Alert(balance core.Money) string {
	if balance.IsZero() {
		return "Sin fondos disponibles"
	}
	switch f.TierFor(balance) {
	case TierHealthy:
		return "Saldo saludable"
	case TierModerate:
		return "Saldo moderado"
	default:
		return "Saldo bajo"
	}
}

// Filter applies the default thresholds.
func Filter(accounts []core.Account) []EligibleAccount {
	return NewEligibilityFilter(DefaultThresholds()).Filter(accounts)
}
