package commands

import (
	"context"

	"github.com/0x5457/dill/cmd/cmdsfx"
	"github.com/spf13/cobra"
)

func NewFindCommand() *cobra.Command {
	var project, version string

	cmd := &cobra.Command{
		Use:   "find SYMBOL",
		Short: "Print the stored definitions of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(ctx context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunFind(ctx, args[0], project, version)
			})
		},
	}
	addScopeFlags(cmd, &project, &version)
	return cmd
}
