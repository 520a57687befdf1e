package cmdsfx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/0x5457/dill/internal/indexer"
	appmcp "github.com/0x5457/dill/internal/mcp"
	"github.com/0x5457/dill/internal/search"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// CommandRunner provides methods to run different application commands
type CommandRunner struct {
	out           io.Writer
	log           *zap.Logger
	searchService *search.Service
	ingester      indexer.Ingester
	mcpServer     *server.MCPServer
}

// Params represents dependencies for command runner
type Params struct {
	fx.In

	Logger        *zap.Logger
	Out           io.Writer         `name:"stdout" optional:"true"`
	SearchService *search.Service   `optional:"true"`
	Ingester      indexer.Ingester  `optional:"true"`
	MCPServer     *server.MCPServer `optional:"true"`
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(params Params) *CommandRunner {
	out := params.Out
	if out == nil {
		out = os.Stdout
	}
	return &CommandRunner{
		out:           out,
		log:           params.Logger,
		searchService: params.SearchService,
		ingester:      params.Ingester,
		mcpServer:     params.MCPServer,
	}
}

// RunFind prints every symbol stored under name with its source.
func (r *CommandRunner) RunFind(ctx context.Context, name, project, version string) error {
	if r.searchService == nil {
		return fmt.Errorf("search service not available")
	}
	results, err := r.searchService.FindSymbol(ctx, name, project, version)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(r.out, "No results for '%s'\n", name)
		return nil
	}
	for _, res := range results {
		fmt.Fprintf(r.out, "--- %s\n%s\n", header(res), res.Text)
	}
	return nil
}

// RunMatch prints the closest symbols to req.Text, or to the content of
// file when it is set.
func (r *CommandRunner) RunMatch(ctx context.Context, req search.MatchRequest, file string) error {
	if r.searchService == nil {
		return fmt.Errorf("search service not available")
	}
	var (
		results []search.Result
		err     error
	)
	if file != "" {
		results, err = r.searchService.MatchFile(ctx, file, req)
	} else {
		results, err = r.searchService.Match(ctx, req)
	}
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(r.out, "no matches")
		return nil
	}
	for _, res := range results {
		fmt.Fprintf(r.out, "--- [sim=%.3f] %s\n%s\n", res.Similarity, header(res), res.Snippet)
	}
	return nil
}

// RunIngest ingests files and directory trees, reporting per file.
func (r *CommandRunner) RunIngest(ctx context.Context, paths []string, project, version string) error {
	if r.ingester == nil {
		return fmt.Errorf("ingester not available")
	}
	results, err := r.ingester.IngestPaths(ctx, paths, project, version)
	total := 0
	for _, res := range results {
		total += len(res.IDs)
		if len(res.IDs) == 0 && len(res.Duplicates) == 0 {
			continue
		}
		fmt.Fprintf(r.out, "Ingested %d symbols from %s\n", len(res.IDs), res.Path)
		for _, name := range sortedKeys(res.Duplicates) {
			fmt.Fprintf(r.out, "  skipped %d duplicate(s) of %s\n", res.Duplicates[name], name)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Ingested %d symbols from %d files\n", total, len(results))
	return nil
}

// RunList prints one line per stored symbol.
func (r *CommandRunner) RunList(ctx context.Context, project, version string) error {
	if r.searchService == nil {
		return fmt.Errorf("search service not available")
	}
	results, err := r.searchService.ListSymbols(ctx, project, version)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(r.out, "No symbols found")
		return nil
	}
	for _, res := range results {
		s := res.Symbol
		if s == nil {
			fmt.Fprintf(r.out, "%s %q\n", res.ID, res.Snippet)
			continue
		}
		fmt.Fprintf(r.out, "%s (%s) [%s@%s] %s:%d-%d\n",
			s.Name, s.Kind, s.Project, s.Version, s.Filename, s.StartLine, s.EndLine)
	}
	return nil
}

// RunServe ingests preload paths, then serves the MCP tools until the
// transport stops.
func (r *CommandRunner) RunServe(ctx context.Context, transport, address string, preload []string) error {
	if r.mcpServer == nil {
		return fmt.Errorf("MCP server not available")
	}
	if len(preload) > 0 {
		if r.ingester == nil {
			return fmt.Errorf("ingester not available")
		}
		r.log.Info("pre-index", zap.Strings("paths", preload))
		if _, err := r.ingester.IngestPaths(ctx, preload, "", ""); err != nil {
			return fmt.Errorf("pre-index failed: %w", err)
		}
	}
	r.log.Info("serving tools", zap.String("transport", transport), zap.String("address", address))
	err := appmcp.Serve(r.mcpServer, transport, address)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func header(res search.Result) string {
	s := res.Symbol
	if s == nil {
		return res.ID
	}
	return fmt.Sprintf("%s (%s) @ %s:%d-%d", s.Name, s.Kind, s.Filename, s.StartLine, s.EndLine)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Module provides command runner
var Module = fx.Module("commands",
	fx.Provide(NewCommandRunner),
)
