package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"finanzas/internal/core"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0,00"},
		{"12.5", "$12,50"},
		{"999", "$999,00"},
		{"1000", "$1.000,00"},
		{"1234567.89", "$1.234.567,89"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(core.MustParseMoney(tt.in)))
	}
	assert.Equal(t, "-$10.000,00", FormatAmount(money(0).Sub(money(10_000))))
}

func TestRender(t *testing.T) {
	e := NewDefault()

	blocked := Render(e.Evaluate(draft(1, core.Expense), account(10, core.AccountInactive)))
	assert.Equal(t, ToneError, blocked.Tone)
	assert.Empty(t, blocked.ConfirmLabel)

	denied := Render(e.Evaluate(draft(50_000, core.Expense), account(40_000, core.AccountActive)))
	assert.Equal(t, ToneError, denied.Tone)
	assert.Empty(t, denied.ConfirmLabel)
	assert.Contains(t, denied.Message, "$10.000,00")

	warn := Render(e.Evaluate(draft(10_000, core.Expense), account(40_000, core.AccountActive)))
	assert.Equal(t, ToneWarning, warn.Tone)
	assert.Equal(t, "Cancelar operación", warn.CancelLabel)
	assert.Contains(t, warn.Message, "$30.000,00")

	confirm := Render(e.Evaluate(draft(30_000, core.Expense), account(200_000, core.AccountActive)))
	assert.Equal(t, ToneInfo, confirm.Tone)
	assert.Equal(t, "Todavía no", confirm.CancelLabel)
	assert.Contains(t, confirm.Message, "$170.000,00")

	income := Render(e.Evaluate(draft(25_000, core.Income), account(0, core.AccountActive)))
	assert.Equal(t, ToneSuccess, income.Tone)
	assert.Contains(t, income.Message, "$25.000,00")
}
