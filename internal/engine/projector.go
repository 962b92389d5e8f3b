package engine

import "finanzas/internal/core"

// Project returns the hypothetical balance after applying amount to balance.
// Expenses subtract and incomes add. The result is not clamped: a negative
// projection is exactly what the insufficient-funds rule guards against.
func Project(balance, amount core.Money, kind core.MovementKind) core.Money {
	switch kind {
	case core.Expense:
		return balance.Sub(amount)
	case core.Income:
		return balance.Add(amount)
	default:
		return balance
	}
}
