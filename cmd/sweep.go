package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/quotaguard/internal/application"
)

type sweepReportView struct {
	StartedAt         string `json:"started_at"`
	DurationMS        int64  `json:"duration_ms"`
	Unblocked         int    `json:"unblocked"`
	UnblockFailed     int    `json:"unblock_failed"`
	PolicyReconciled  int    `json:"policy_reconciled"`
	PolicyFailed      int    `json:"policy_failed"`
	ProtectionCleared int    `json:"protection_cleared"`
	ProtectionFailed  int    `json:"protection_failed"`
	Skipped           int    `json:"skipped"`
}

func newSweepCmd(a *app) *cobra.Command {
	var asJSON bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Unblock expired accounts, retry pending deny removals and clear stale protection once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				report application.SweepReport
				err    error
			)
			if quiet || asJSON {
				report, err = a.sweeper.Run(cmd.Context())
			} else {
				report, err = runSweepSpinner(cmd.Context(), cmd.ErrOrStderr(), a.sweeper.Run)
			}
			if werr := writeSweepReport(cmd, report, asJSON); werr != nil {
				return werr
			}
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			if report.Failed() > 0 {
				return fmt.Errorf("sweep: %d account(s) failed", report.Failed())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not draw a progress spinner")

	return cmd
}

func writeSweepReport(cmd *cobra.Command, report application.SweepReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sweepReportView{
			StartedAt:         report.StartedAt.Format(time.RFC3339),
			DurationMS:        report.Duration.Milliseconds(),
			Unblocked:         report.Unblocked,
			UnblockFailed:     report.UnblockFailed,
			PolicyReconciled:  report.PolicyReconciled,
			PolicyFailed:      report.PolicyFailed,
			ProtectionCleared: report.ProtectionCleared,
			ProtectionFailed:  report.ProtectionFailed,
			Skipped:           report.Skipped,
		})
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(),
		"unblocked: %d (failed %d)\ndeny removals retried: %d (failed %d)\nprotection cleared: %d (failed %d)\nskipped: %d\n",
		report.Unblocked, report.UnblockFailed,
		report.PolicyReconciled, report.PolicyFailed,
		report.ProtectionCleared, report.ProtectionFailed,
		report.Skipped)
	return err
}
