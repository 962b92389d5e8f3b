package engine

import (
	"fmt"
	"strings"

	"finanzas/internal/core"
)

// Tone drives how a client styles a presentation.
type Tone string

const (
	ToneError   Tone = "error"
	ToneWarning Tone = "warning"
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
)

// Presentation is the user-facing text for an outcome. An empty
// ConfirmLabel means the outcome cannot be confirmed.
type Presentation struct {
	Title        string `json:"title"`
	Message      string `json:"message"`
	Tone         Tone   `json:"tone"`
	ConfirmLabel string `json:"confirm_label,omitempty"`
	CancelLabel  string `json:"cancel_label"`
}

// Render maps an outcome to its presentation. It holds no state and never
// changes the verdict.
func Render(o Outcome) Presentation {
	switch o.Kind {
	case Blocked:
		return Presentation{
			Title:       o.Headline,
			Message:     fmt.Sprintf("La cuenta %q está inactiva. Actívala para registrar movimientos.", o.AccountName),
			Tone:        ToneError,
			CancelLabel: "Entendido",
		}
	case Denied:
		return Presentation{
			Title: o.Headline,
			Message: fmt.Sprintf("El gasto de %s supera el saldo disponible de %s en %q. Faltan %s.",
				FormatAmount(o.Amount), formatOpt(o.Balance), o.AccountName, formatOpt(o.Shortfall)),
			Tone:        ToneError,
			CancelLabel: "Entendido",
		}
	case WarnConfirm:
		return Presentation{
			Title: o.Headline,
			Message: fmt.Sprintf("Tras este gasto el saldo de %q pasará de %s a %s. ¿Deseas continuar?",
				o.AccountName, formatOpt(o.Balance), formatOpt(o.Projected)),
			Tone:         ToneWarning,
			ConfirmLabel: "Sí, continuar",
			CancelLabel:  "Cancelar operación",
		}
	case Confirm:
		if o.Movement == core.Expense {
			return Presentation{
				Title: o.Headline,
				Message: fmt.Sprintf("Se registrará un gasto de %s en %q. Saldo resultante: %s.",
					FormatAmount(o.Amount), o.AccountName, formatOpt(o.Projected)),
				Tone:         ToneInfo,
				ConfirmLabel: "Registrar gasto",
				CancelLabel:  "Todavía no",
			}
		}
		return Presentation{
			Title: o.Headline,
			Message: fmt.Sprintf("Se registrará un ingreso de %s en %q. El saldo pasará de %s a %s.",
				FormatAmount(o.Amount), o.AccountName, formatOpt(o.Balance), formatOpt(o.Projected)),
			Tone:         ToneSuccess,
			ConfirmLabel: "Registrar ingreso",
			CancelLabel:  "Todavía no",
		}
	default:
		return Presentation{Title: "Resultado desconocido", Tone: ToneError, CancelLabel: "Cerrar"}
	}
}

// FormatAmount renders money with dot thousands and comma decimals,
// e.g. "$1.234.567,89".
func FormatAmount(m core.Money) string {
	s := m.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return sign + "$" + b.String() + "," + frac
}

func formatOpt(m *core.Money) string {
	if m == nil {
		return "-"
	}
	return FormatAmount(*m)
}
