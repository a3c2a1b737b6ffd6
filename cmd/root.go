package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

const annotationSkipWiring = "quotaguard/skip-wiring"

func Execute() error {
	a := &app{}
	err := newRootCmd(a).Execute()
	return errors.Join(err, a.close(context.Background()))
}

func newRootCmd(a *app) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "qg",
		Short:         "Usage quota blocking engine",
		Long:          "qg enforces daily and monthly request quotas: it blocks accounts that exceed their limits by writing a deny statement into their access policy, unblocks them when the block expires, and lets administrators block, unblock and inspect accounts.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationSkipWiring] == "true" {
				return nil
			}
			return a.wire(cmd.Context(), configPath, cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HOME/.config/quotaguard/config.toml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(a),
		newSweepCmd(a),
		newBlockCmd(a),
		newUnblockCmd(a),
		newStatusCmd(a),
		newEvaluateCmd(a),
	)

	return rootCmd
}
