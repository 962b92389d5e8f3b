package engine

import "finanzas/internal/core"

// OutcomeKind is the verdict of an evaluation.
type OutcomeKind string

const (
	// Blocked: the target account is inactive.
	Blocked OutcomeKind = "blocked"
	// Denied: an expense exceeds the current balance.
	Denied OutcomeKind = "denied"
	// WarnConfirm: an expense would leave the balance under the low-balance
	// threshold.
	WarnConfirm OutcomeKind = "warn_confirm"
	// Confirm: a routine expense or any income.
	Confirm OutcomeKind = "confirm"
)

// Outcome is the result of evaluating a draft against an account snapshot.
// Optional amounts are nil when the verdict does not carry them: Blocked has
// only the account name and Denied has no projection.
type Outcome struct {
	Kind        OutcomeKind       `json:"kind"`
	Movement    core.MovementKind `json:"movement"`
	Headline    string            `json:"headline"`
	AccountID   string            `json:"account_id"`
	AccountName string            `json:"account_name"`
	Amount      core.Money        `json:"amount"`
	Balance     *core.Money       `json:"balance,omitempty"`
	Projected   *core.Money       `json:"projected,omitempty"`
	Shortfall   *core.Money       `json:"shortfall,omitempty"`
	// RequiresAck is set when the user must explicitly confirm.
	RequiresAck bool `json:"requires_ack"`
	// SafetyStop marks a cancellation as aborting the operation entirely
	// rather than "not yet".
	SafetyStop bool `json:"safety_stop"`
}

// Blocking reports whether the outcome forbids the transaction.
func (o Outcome) Blocking() bool {
	return o.Kind == Blocked || o.Kind == Denied
}

// Engine evaluates drafts with a fixed set of thresholds.
type Engine struct {
	thresholds Thresholds
	filter     EligibilityFilter
}

func New(t Thresholds) *Engine {
	return &Engine{thresholds: t, filter: NewEligibilityFilter(t)}
}

// NewDefault returns an engine with DefaultThresholds.
func NewDefault() *Engine {
	return New(DefaultThresholds())
}

func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// Filter exposes the eligibility filter built from the same thresholds.
func (e *Engine) Filter() EligibilityFilter { return e.filter }

// Evaluate applies the rules in order and returns the first match:
//
//  1. inactive account            -> Blocked
//  2. expense above the balance   -> Denied
//  3. expense, 0 <= projected < low-balance threshold -> WarnConfirm
//  4. any other expense           -> Confirm
//  5. income                      -> Confirm
//
// The draft is assumed structurally valid. A kind other than Expense is
// treated as income.
func (e *Engine) Evaluate(draft core.TransactionDraft, account core.Account) Outcome {
	out := Outcome{
		Movement:    draft.Kind,
		AccountID:   account.ID,
		AccountName: account.Name,
		Amount:      draft.Amount,
	}

	if !e.filter.Eligible(account) {
		out.Kind = Blocked
		out.Headline = "Cuenta inactiva"
		return out
	}

	balance := account.Balance
	out.Balance = &balance

	if draft.Kind != core.Expense {
		projected := Project(balance, draft.Amount, core.Income)
		out.Kind = Confirm
		out.Headline = "Confirmar ingreso"
		out.Projected = &projected
		out.RequiresAck = true
		return out
	}

	if draft.Amount.GreaterThan(balance) {
		shortfall := draft.Amount.Sub(balance)
		out.Kind = Denied
		out.Headline = "Saldo insuficiente"
		out.Shortfall = &shortfall
		return out
	}

	projected := Project(balance, draft.Amount, core.Expense)
	out.Projected = &projected
	out.RequiresAck = true
	if projected.LessThan(e.thresholds.LowBalance) {
		out.Kind = WarnConfirm
		out.Headline = "Saldo bajo después de la transacción"
		out.SafetyStop = true
		return out
	}
	out.Kind = Confirm
	out.Headline = "Confirmar gasto"
	return out
}

// Evaluate is a convenience for a single evaluation with explicit thresholds.
func Evaluate(draft core.TransactionDraft, account core.Account, t Thresholds) Outcome {
	return New(t).Evaluate(draft, account)
}
