package commands

import (
	"context"

	"github.com/0x5457/dill/cmd/cmdsfx"
	"github.com/0x5457/dill/internal/embeddings/embeddingsfx"
	appmcp "github.com/0x5457/dill/internal/mcp"
	"github.com/spf13/cobra"
)

// NewServeCommand runs the MCP tool server.
func NewServeCommand() *cobra.Command {
	var transport, address string

	cmd := &cobra.Command{
		Use:   "serve [PATH...]",
		Short: "Run MCP server",
		Long:  "Run MCP server providing find_symbol, match, ingest_file and list_symbols tools. Paths given are ingested first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(ctx context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunServe(ctx, transport, address, args)
			}, embeddingsfx.WarmModule)
		},
	}
	cmd.Flags().
		StringVarP(&transport, "transport", "t", appmcp.TransportStdio, "transport (stdio, http, sse)")
	cmd.Flags().
		StringVarP(&address, "address", "a", "", "listen address (http, sse), e.g. :8080")
	return cmd
}
