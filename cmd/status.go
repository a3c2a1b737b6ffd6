package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/quotaguard/internal/adapters/render/status"
	"github.com/bnema/quotaguard/internal/application"
	"github.com/bnema/quotaguard/internal/domain"
)

func newStatusCmd(a *app) *cobra.Command {
	var accountIDs []string
	var asJSON bool
	var view statusView

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show block state and usage for accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses := make([]application.AccountStatus, 0, len(accountIDs))
			for _, id := range accountIDs {
				status, err := a.gateway.Status(cmd.Context(), domain.AccountID(id))
				if err != nil {
					return fmt.Errorf("load status for %q: %w", id, err)
				}
				statuses = append(statuses, status)
			}

			return writeStatusesOutput(cmd, a, statuses, asJSON, view)
		},
	}

	cmd.Flags().StringSliceVar(&accountIDs, "account", nil, "Account ID (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&view.plain, "plain", false, "Render text without colors")
	cmd.Flags().IntVar(&view.barWidth, "bar-width", 24, "Width of the usage bars")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

type statusView struct {
	plain    bool
	barWidth int
}

func writeStatusesOutput(cmd *cobra.Command, a *app, statuses []application.AccountStatus, asJSON bool, view statusView) error {
	if asJSON {
		views := make([]application.CommandResponse, 0, len(statuses))
		for _, status := range statuses {
			views = append(views, application.StatusResponse(status))
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	rendered, err := a.statusRenderer(statuses, statusadapter.RenderOptions{
		Now:          a.now(),
		Location:     a.cfg.Location,
		WarningRatio: a.cfg.Limits.WarningRatio,
		BarWidth:     view.barWidth,
		Plain:        view.plain,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
