// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals backed by shopspring/decimal. Balances and
// projections are never computed with floating point, so repeated small
// transactions cannot drift away from the persisted ledger.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// maxAmountCents bounds every stored amount and opening balance: 999.999.999.999,99.
// Balances stay far below the int64 cent range the ledger stores them in.
const maxAmountCents = 99_999_999_999_999

// MaxAmount is the largest amount a transaction or opening balance may carry.
var MaxAmount = MoneyFromCents(maxAmountCents)

// Money is an exact decimal currency amount with two fractional digits of
// display precision. The zero value is a valid zero amount.
type Money struct {
	value decimal.Decimal
}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{value: d}
}

// MoneyFromInt returns a whole-unit amount.
func MoneyFromInt(units int64) Money {
	return Money{value: decimal.NewFromInt(units)}
}

// MoneyFromCents returns the amount for a number of cents.
func MoneyFromCents(cents int64) Money {
	return Money{value: decimal.New(cents, -2)}
}

// ParseAmount parses a strictly positive amount, as entered for a transaction.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("0")      -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	m, err := ParseMoney(s)
	if err != nil {
		return Money{}, err
	}
	if !m.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// ParseMoney parses a non-negative amount such as an opening account balance.
// Signs, exponents and thousands separators are rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return Money{}, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		if len(parts) == 1 || parts[1] == "" {
			return Money{}, ErrInvalidAmount
		}
		s = "0" + s
	}
	if strings.HasSuffix(s, ".") {
		s = strings.TrimSuffix(s, ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := Money{value: d.Round(2)}
	if m.GreaterThan(MaxAmount) {
		return Money{}, ErrAmountTooLarge
	}
	return m, nil
}

// MustParseMoney is like ParseMoney but panics on error. Intended for
// constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic("core: invalid money literal " + s)
	}
	return m
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.value
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{value: m.value.Add(o.value)}
}

// Sub returns m - o. The result may be negative.
func (m Money) Sub(o Money) Money {
	return Money{value: m.value.Sub(o.value)}
}

// Cmp compares m and o: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) int {
	return m.value.Cmp(o.value)
}

// Equal reports whether both amounts are numerically equal.
func (m Money) Equal(o Money) bool {
	return m.value.Equal(o.value)
}

func (m Money) GreaterThan(o Money) bool { return m.value.GreaterThan(o.value) }
func (m Money) LessThan(o Money) bool    { return m.value.LessThan(o.value) }
func (m Money) IsPositive() bool         { return m.value.IsPositive() }
func (m Money) IsNegative() bool         { return m.value.IsNegative() }
func (m Money) IsZero() bool             { return m.value.IsZero() }

// Cents returns the amount in cents, rounding half away from zero. Amounts
// whose cent value does not fit in an int64 are refused, never wrapped.
func (m Money) Cents() (int64, error) {
	c := m.value.Shift(2).Round(0)
	if !c.BigInt().IsInt64() {
		return 0, ErrAmountTooLarge
	}
	return c.IntPart(), nil
}

// String formats the amount with exactly two decimals, e.g. "1250.00".
func (m Money) String() string {
	return m.value.StringFixed(2)
}

// Validate checks that m is a usable transaction amount.
func (m Money) Validate() error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	if m.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

// MarshalJSON encodes the amount as a quoted decimal string so that clients
// never round-trip it through a binary float.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare decimal numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	m.value = d
	return nil
}
