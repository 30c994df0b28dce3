// Package cli implements the fwharness command line: inspect the DUT's
// firmware inventory and boot images, plan updates, and drive full install or
// update workflows.
package cli

import (
	"github.com/spf13/cobra"
)

func NewFwharnessCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fwharness",
		Short: "fwharness validates firmware update tooling on a switch DUT",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(NewCmdStatus())
	cmd.AddCommand(NewCmdImages())
	cmd.AddCommand(NewCmdReconcile())
	cmd.AddCommand(NewCmdInstall())
	cmd.AddCommand(NewCmdUpdate())

	return cmd
}
