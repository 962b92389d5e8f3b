// Package engine decides whether a proposed transaction may proceed, which
// acknowledgment it needs and what the target balance would become.
//
// Everything here is pure: no I/O, no clocks, no shared state. The same draft
// evaluated against the same account snapshot always yields the same outcome.
package engine

import (
	"errors"

	"finanzas/internal/core"
)

// Thresholds holds the configurable money boundaries used by the engine.
type Thresholds struct {
	// LowBalance is the projected balance under which an expense needs a
	// safety confirmation.
	LowBalance core.Money
	// ModerateFloor and HealthyFloor split balances into display tiers:
	// (HealthyFloor, ∞) healthy, (ModerateFloor, HealthyFloor] moderate,
	// everything else low.
	ModerateFloor core.Money
	HealthyFloor  core.Money
}

var (
	ErrNegativeThreshold = errors.New("thresholds cannot be negative")
	ErrTierOrder         = errors.New("healthy floor must be greater than moderate floor")
)

// DefaultThresholds returns the stock 50,000 / 100,000 boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowBalance:    core.MoneyFromInt(50_000),
		ModerateFloor: core.MoneyFromInt(50_000),
		HealthyFloor:  core.MoneyFromInt(100_000),
	}
}

func (t Thresholds) Validate() error {
	if t.LowBalance.IsNegative() || t.ModerateFloor.IsNegative() || t.HealthyFloor.IsNegative() {
		return ErrNegativeThreshold
	}
	if !t.HealthyFloor.GreaterThan(t.ModerateFloor) {
		return ErrTierOrder
	}
	return nil
}
