package commands

import (
	"context"

	"github.com/0x5457/dill/cmd/cmdsfx"
	"github.com/0x5457/dill/internal/constants"
	"github.com/0x5457/dill/internal/search"
	"github.com/spf13/cobra"
)

func NewMatchCommand() *cobra.Command {
	var (
		text, file       string
		project, version string
		limit            int
	)

	cmd := &cobra.Command{
		Use:   "match (--text TEXT | --file FILE)",
		Short: `Find the symbols most similar to a text or file, "*" lists everything`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := search.MatchRequest{
				Text:    text,
				Project: project,
				Version: version,
				Limit:   limit,
			}
			return withRunner(cmd, func(ctx context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunMatch(ctx, req, file)
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "text to match")
	cmd.Flags().StringVar(&file, "file", "", "file whose content to match")
	cmd.Flags().IntVarP(&limit, "limit", "n", constants.DefaultMatchLimit, "maximum number of results")
	addScopeFlags(cmd, &project, &version)
	cmd.MarkFlagsMutuallyExclusive("text", "file")
	cmd.MarkFlagsOneRequired("text", "file")
	return cmd
}
