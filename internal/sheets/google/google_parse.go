package google

import (
	"fmt"
	"strconv"
	"strings"

	"finanzas/internal/core"
)

const rowColumns = "A:H"

var headerRow = []any{"ID", "Fecha", "Tipo", "Cuenta", "Categoría", "Descripción", "Monto", "Registrado"}

// transactionRow lays a transaction out in the mirror's column order. The
// amount is written as a plain decimal so that USER_ENTERED parses it as a
// number in every spreadsheet locale that uses a dot separator.
func transactionRow(t core.Transaction) []any {
	recorded := ""
	if !t.CreatedAt.IsZero() {
		recorded = t.CreatedAt.UTC().Format("2006-01-02 15:04:05")
	}
	return []any{
		t.ID,
		t.Date.String(),
		kindLabel(t.Kind),
		t.AccountID,
		t.CategoryID,
		t.Description,
		t.Amount.String(),
		recorded,
	}
}

func kindLabel(k core.MovementKind) string {
	switch k {
	case core.Income:
		return "ingreso"
	case core.Expense:
		return "gasto"
	default:
		return string(k)
	}
}

// containsID scans the first column of a values matrix for id.
func containsID(values [][]any, id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return true
		}
	}
	return false
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// quoteSheet wraps a sheet name for A1 notation when it contains spaces.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
