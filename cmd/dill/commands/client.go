package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/0x5457/dill/cmd/cmdsfx"
	appmcp "github.com/0x5457/dill/internal/mcp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const clientTimeout = 30 * time.Second

// NewClientCommand creates commands for talking to a running MCP server, or
// to one started in process.
func NewClientCommand() *cobra.Command {
	var transport, address string

	cmd := &cobra.Command{
		Use:   "client",
		Short: "MCP client commands",
	}
	cmd.PersistentFlags().
		StringVarP(&transport, "transport", "t", appmcp.TransportInproc, "transport (http, sse, inproc)")
	cmd.PersistentFlags().
		StringVarP(&address, "address", "a", "", "server URL (http, sse)")

	connect := func(cmd *cobra.Command, use func(ctx context.Context, cli *appmcp.Client) error) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
		defer cancel()
		if transport != appmcp.TransportInproc {
			cli, err := appmcp.Connect(ctx, transport, address)
			if err != nil {
				return fmt.Errorf("create MCP client failed: %w", err)
			}
			defer cli.Close() //nolint:errcheck
			return use(ctx, cli)
		}

		var srv *server.MCPServer
		return withRunner(cmd, func(context.Context, *cmdsfx.CommandRunner) error {
			cli, err := appmcp.NewInProcessClient(ctx, srv)
			if err != nil {
				return fmt.Errorf("create MCP client failed: %w", err)
			}
			defer cli.Close() //nolint:errcheck
			return use(ctx, cli)
		}, fx.Populate(&srv))
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "tools",
			Short: "List available MCP tools",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return connect(cmd, func(ctx context.Context, cli *appmcp.Client) error {
					tools, err := cli.ListTools(ctx)
					if err != nil {
						return fmt.Errorf("failed to list tools: %w", err)
					}
					printTools(cmd.OutOrStdout(), tools)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "call TOOL [key=value...]",
			Short: "Call a specific MCP tool",
			Example: `  dill client call find_symbol name=vec2_dot project=geometry
  dill client call match text="*" limit=3 -t http -a http://127.0.0.1:8080/mcp`,
			Args: cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				toolArgs, err := parseToolArgs(args[1:])
				if err != nil {
					return err
				}
				return connect(cmd, func(ctx context.Context, cli *appmcp.Client) error {
					result, err := cli.Call(ctx, args[0], toolArgs)
					if err != nil {
						return fmt.Errorf("call tool failed: %w", err)
					}
					output, err := json.MarshalIndent(result, "", "  ")
					if err != nil {
						return fmt.Errorf("format result failed: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(output))
					if result.IsError {
						return fmt.Errorf("tool %s returned an error", args[0])
					}
					return nil
				})
			},
		},
	)
	return cmd
}

// parseToolArgs turns key=value pairs into tool arguments, reading integers
// and booleans as such.
func parseToolArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument format: %s (expected key=value)", pair)
		}
		if n, err := strconv.Atoi(value); err == nil {
			args[key] = n
		} else if b, err := strconv.ParseBool(value); err == nil {
			args[key] = b
		} else {
			args[key] = value
		}
	}
	return args, nil
}

func printTools(w io.Writer, tools []mcp.Tool) {
	if len(tools) == 0 {
		fmt.Fprintln(w, "No tools available")
		return
	}
	fmt.Fprintf(w, "Available MCP tools (%d):\n\n", len(tools))
	for i, tool := range tools {
		fmt.Fprintf(w, "%d. %s\n", i+1, tool.Name)
		if tool.Description != "" {
			fmt.Fprintf(w, "   Description: %s\n", tool.Description)
		}
		names := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			required := ""
			if slices.Contains(tool.InputSchema.Required, name) {
				required = " (required)"
			}
			desc := ""
			if prop, ok := tool.InputSchema.Properties[name].(map[string]any); ok {
				if d, ok := prop["description"].(string); ok {
					desc = ": " + d
				}
			}
			fmt.Fprintf(w, "     - %s%s%s\n", name, required, desc)
		}
		fmt.Fprintln(w)
	}
}
