package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"finanzas/internal/cli"
	"finanzas/internal/core"
	"finanzas/internal/engine"
)

type evaluateFlags struct {
	account     string
	amount      string
	kind        string
	category    string
	description string
	date        string
	asJSON      bool
}

func evaluateCmd() *cobra.Command {
	var f evaluateFlags

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a draft against a stored account without recording it",
		Example: `  finanzas evaluate --account acc-1 --amount 120000 --category alimentacion --description "Mercado"
  finanzas evaluate --account acc-2 --amount 5000 --kind ingreso --category salario --description "Pago" --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			draft, err := f.draft(time.Now())
			if err != nil {
				return err
			}
			return runEvaluate(cmd.Context(), cmd.OutOrStdout(), draft, f.asJSON)
		},
	}
	cmd.Flags().StringVar(&f.account, "account", "", "account id (required)")
	cmd.Flags().StringVar(&f.amount, "amount", "", "positive amount (required)")
	cmd.Flags().StringVar(&f.kind, "kind", string(core.Expense), "expense or income")
	cmd.Flags().StringVar(&f.category, "category", "", "category id (required)")
	cmd.Flags().StringVar(&f.description, "description", "", "description (required)")
	cmd.Flags().StringVar(&f.date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the outcome and presentation as JSON")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (f evaluateFlags) draft(now time.Time) (core.TransactionDraft, error) {
	amount, err := core.ParseAmount(f.amount)
	if err != nil {
		return core.TransactionDraft{}, err
	}
	kind, err := core.ParseMovementKind(f.kind)
	if err != nil {
		return core.TransactionDraft{}, err
	}
	y, m, d := now.UTC().Date()
	date := core.NewDate(y, int(m), d)
	if f.date != "" {
		if date, err = core.ParseDate(f.date); err != nil {
			return core.TransactionDraft{}, fmt.Errorf("invalid date %q: %w", f.date, err)
		}
	}
	draft := core.TransactionDraft{
		Amount:      amount,
		Kind:        kind,
		AccountID:   f.account,
		CategoryID:  f.category,
		Description: f.description,
		Date:        date,
	}
	return draft, draft.Validate()
}

func runEvaluate(ctx context.Context, out io.Writer, draft core.TransactionDraft, asJSON bool) error {
	backend, err := cli.OpenStore(ctx, appConfig, appLogger)
	if err != nil {
		return err
	}
	defer backend.Cleanup()

	account, err := backend.Store.GetAccount(ctx, draft.AccountID)
	if err != nil {
		return fmt.Errorf("account %s: %w", draft.AccountID, err)
	}
	outcome := engine.New(appConfig.Thresholds).Evaluate(draft, account)
	return printOutcome(out, outcome, asJSON)
}

func printOutcome(out io.Writer, o engine.Outcome, asJSON bool) error {
	p := engine.Render(o)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Outcome      engine.Outcome      `json:"outcome"`
			Presentation engine.Presentation `json:"presentation"`
		}{o, p})
	}

	fmt.Fprintf(out, "%s [%s]\n", p.Title, o.Kind)
	fmt.Fprintln(out, p.Message)
	if p.ConfirmLabel != "" {
		fmt.Fprintf(out, "Acciones: %s / %s\n", p.ConfirmLabel, p.CancelLabel)
	} else {
		fmt.Fprintf(out, "Acción: %s\n", p.CancelLabel)
	}
	return nil
}
