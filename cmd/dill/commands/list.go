package commands

import (
	"context"

	"github.com/0x5457/dill/cmd/cmdsfx"
	"github.com/spf13/cobra"
)

func NewListCommand() *cobra.Command {
	var project, version string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(ctx context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunList(ctx, project, version)
			})
		},
	}
	addScopeFlags(cmd, &project, &version)
	return cmd
}
