package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/quotaguard/internal/domain"
)

type evaluationView struct {
	AccountID         string `json:"account_id"`
	ShouldBlock       bool   `json:"should_block"`
	Reason            string `json:"reason,omitempty"`
	RequestsToday     int64  `json:"requests_today"`
	RequestsThisMonth int64  `json:"requests_this_month"`
	Outcome           string `json:"outcome,omitempty"`
}

func newEvaluateCmd(a *app) *cobra.Command {
	var accountID string
	var dryRun bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate an account's usage and block it when over a limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := domain.AccountID(accountID)
			shouldBlock, reason, snapshot, err := a.evaluator.Evaluate(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("evaluate %q: %w", accountID, err)
			}

			view := evaluationView{
				AccountID:         accountID,
				ShouldBlock:       shouldBlock,
				Reason:            reason,
				RequestsToday:     snapshot.RequestsToday,
				RequestsThisMonth: snapshot.RequestsThisMonth,
			}

			var blockErr error
			if shouldBlock && !dryRun {
				result, err := a.machine.AutoBlock(cmd.Context(), id, reason, snapshot)
				view.Outcome = string(result.Outcome)
				blockErr = err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(view); err != nil {
					return err
				}
			} else if err := writeEvaluation(cmd, view); err != nil {
				return err
			}

			if blockErr != nil {
				return fmt.Errorf("block %q: %w", accountID, blockErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the decision without blocking")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func writeEvaluation(cmd *cobra.Command, view evaluationView) error {
	decision := "within limits"
	if view.ShouldBlock {
		decision = "over limit: " + view.Reason
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (today %d, month %d)\n",
		view.AccountID, decision, view.RequestsToday, view.RequestsThisMonth)
	if err != nil || view.Outcome == "" {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "block: %s\n", view.Outcome)
	return err
}
