package commands

import (
	"context"

	"github.com/0x5457/dill/cmd/cmdsfx"
	"github.com/spf13/cobra"
)

func NewIngestCommand() *cobra.Command {
	var project, version string

	cmd := &cobra.Command{
		Use:   "ingest PATH...",
		Short: "Extract and store the symbols of files and directory trees",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(ctx context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunIngest(ctx, args, project, version)
			})
		},
	}
	addScopeFlags(cmd, &project, &version)
	return cmd
}
