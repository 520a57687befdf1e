package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/0x5457/dill/cmd/cmdsfx"
	"github.com/0x5457/dill/internal/app/appfx"
	"github.com/0x5457/dill/internal/config"
	"github.com/0x5457/dill/internal/constants"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const configFlag = "config"

// NewRootCommand builds the dill command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           constants.AppName,
		Short:         "Index source symbols and look them up by name or similarity",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String(configFlag, "", "config file (yaml, toml or json)")
	pf.String("db", constants.DefaultDBPath, "SQLite database path")
	pf.String("store", config.BackendSQLVec, "store backend (sqlvec, sqlite, memory, qdrant)")
	pf.String("collection", constants.DefaultCollection, "document collection")
	pf.String("embed-url", constants.DefaultEmbedURL, "Embedding API URL")
	pf.String("embedder", config.EmbedAPI, "embedding provider (api, local)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		NewFindCommand(),
		NewMatchCommand(),
		NewIngestCommand(),
		NewListCommand(),
		NewServeCommand(),
		NewCleanCommand(),
		NewClientCommand(),
	)
	return root
}

func addScopeFlags(cmd *cobra.Command, project, version *string) {
	cmd.Flags().StringVarP(project, "project", "p", "", "project name")
	cmd.Flags().StringVarP(version, "version", "v", "", "project version")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return nil, err
	}
	return config.Load(path, cmd.Flags())
}

// withRunner starts the application, hands its command runner to run and
// stops the application again.
func withRunner(
	cmd *cobra.Command,
	run func(ctx context.Context, runner *cmdsfx.CommandRunner) error,
	opts ...fx.Option,
) error {
	path, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return err
	}

	var runner *cmdsfx.CommandRunner
	opts = append(opts,
		fx.Provide(fx.Annotate(
			func() io.Writer { return cmd.OutOrStdout() },
			fx.ResultTags(`name:"stdout"`),
		)),
		fx.Populate(&runner),
	)
	app := appfx.NewAppWithConfig(path, cmd.Flags(), opts...)

	ctx := cmd.Context()
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	runErr := run(ctx, runner)

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}
	return runErr
}
