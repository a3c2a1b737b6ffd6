package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/quotaguard/internal/application"
)

func newBlockCmd(a *app) *cobra.Command {
	var raw application.RawCommand
	var expiresAt string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "block",
		Short: "Block an account manually",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw.Action = string(application.ActionBlock)
			if expiresAt != "" {
				parsed, err := time.Parse(time.RFC3339, expiresAt)
				if err != nil {
					return fmt.Errorf("parse --expires-at: %w", err)
				}
				raw.ExpiresAt = &parsed
			}
			return runAdminCommand(cmd, a, raw, asJSON)
		},
	}

	cmd.Flags().StringVar(&raw.AccountID, "account", "", "Account ID")
	cmd.Flags().StringVar(&raw.Reason, "reason", "", "Reason recorded in the audit log")
	cmd.Flags().StringVar(&raw.PerformedBy, "by", "", "Administrator performing the block")
	cmd.Flags().StringVar(&raw.Duration, "duration", "", "1day, 30days, 90days, indefinite or custom")
	cmd.Flags().StringVar(&expiresAt, "expires-at", "", "RFC3339 expiry for a custom duration")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newUnblockCmd(a *app) *cobra.Command {
	var raw application.RawCommand
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "unblock",
		Short: "Unblock an account and protect it until the next sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw.Action = string(application.ActionUnblock)
			return runAdminCommand(cmd, a, raw, asJSON)
		},
	}

	cmd.Flags().StringVar(&raw.AccountID, "account", "", "Account ID")
	cmd.Flags().StringVar(&raw.Reason, "reason", "", "Reason recorded in the audit log")
	cmd.Flags().StringVar(&raw.PerformedBy, "by", "", "Administrator performing the unblock")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runAdminCommand(cmd *cobra.Command, a *app, raw application.RawCommand, asJSON bool) error {
	resp, code := a.gateway.HandleCommand(cmd.Context(), raw)

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else if err := writeCommandResponse(cmd, resp); err != nil {
		return err
	}

	if code != http.StatusOK {
		return fmt.Errorf("%s %s: %s", raw.Action, strings.TrimSpace(raw.AccountID), resp.Message)
	}
	return nil
}

func writeCommandResponse(cmd *cobra.Command, resp application.CommandResponse) error {
	out := cmd.OutOrStdout()
	state := "active"
	if resp.IsBlocked {
		state = "blocked"
	}

	if _, err := fmt.Fprintf(out, "%s: %s (%s)\n", resp.AccountID, state, resp.BlockType); err != nil {
		return err
	}
	if resp.ExpiresAt != nil {
		if _, err := fmt.Fprintf(out, "expires: %s\n", resp.ExpiresAt.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	if resp.Message != "" {
		if _, err := fmt.Fprintln(out, resp.Message); err != nil {
			return err
		}
	}
	for _, step := range resp.Steps {
		if step.OK {
			continue
		}
		if _, err := fmt.Fprintf(out, "step %s failed: %s\n", step.Step, step.Error); err != nil {
			return err
		}
	}
	return nil
}
