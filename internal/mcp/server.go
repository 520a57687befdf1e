package mcp

import (
	"context"

	"github.com/0x5457/dill/internal/constants"
	"github.com/0x5457/dill/internal/indexer"
	"github.com/0x5457/dill/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ServerVersion is reported to clients during initialization.
const ServerVersion = "0.1.0"

// Server holds the services the tool handlers call into.
type Server struct {
	search   *search.Service
	ingester indexer.Ingester
	log      *zap.Logger
}

// New returns an MCP server exposing symbol lookup, similarity match,
// ingestion and listing tools. Either service may be nil; the tools that
// need it then answer with an error result.
func New(svc *search.Service, ing indexer.Ingester, log *zap.Logger) *server.MCPServer {
	if log == nil {
		log = zap.NewNop()
	}
	srv := &Server{search: svc, ingester: ing, log: log}

	s := server.NewMCPServer(
		constants.AppName+"/mcp",
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.AddTool(newFindSymbolTool(), srv.handleFindSymbol)
	s.AddTool(newMatchTool(), srv.handleMatch)
	s.AddTool(newIngestFileTool(), srv.handleIngestFile)
	s.AddTool(newListSymbolsTool(), srv.handleListSymbols)
	return s
}

// scopeArgs declares project and version. Lookups and ingestion fall back to
// the default project version; queries left unscoped do not filter.
func scopeArgs(defaulted bool) []mcp.ToolOption {
	project := []mcp.PropertyOption{mcp.Description("Project name")}
	version := []mcp.PropertyOption{mcp.Description("Project version")}
	if defaulted {
		project = append(project, mcp.DefaultString(constants.DefaultProject))
		version = append(version, mcp.DefaultString(constants.DefaultVersion))
	} else {
		project[0] = mcp.Description("Project name, all projects when omitted")
		version[0] = mcp.Description("Project version, all versions when omitted")
	}
	return []mcp.ToolOption{
		mcp.WithString("project", project...),
		mcp.WithString("version", version...),
	}
}

// Tool definitions
func newFindSymbolTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Exact symbol name lookup within a project version"),
		mcp.WithString("name", mcp.Description("Symbol name"), mcp.Required()),
	}
	return mcp.NewTool("find_symbol", append(opts, scopeArgs(true)...)...)
}

func newMatchTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(`Find symbols whose code is most similar to the given text, or "*" for everything`),
		mcp.WithString("text", mcp.Description("Code or natural language to match"), mcp.Required()),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results"),
			mcp.DefaultNumber(constants.DefaultMatchLimit),
		),
	}
	return mcp.NewTool("match", append(opts, scopeArgs(false)...)...)
}

func newIngestFileTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Extract and store the symbols of an uploaded source file"),
		mcp.WithString("content", mcp.Description("File content"), mcp.Required()),
		mcp.WithString("filename",
			mcp.Description("File name, its extension selects the grammar"),
			mcp.Required(),
		),
	}
	return mcp.NewTool("ingest_file", append(opts, scopeArgs(true)...)...)
}

func newListSymbolsTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("List every stored symbol of a project version"),
	}
	return mcp.NewTool("list_symbols", append(opts, scopeArgs(false)...)...)
}

// Handlers
func (srv *Server) handleFindSymbol(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.search == nil {
		return mcp.NewToolResultError("search service not initialized"), nil
	}

	results, err := srv.search.FindSymbol(ctx, name,
		req.GetString("project", ""),
		req.GetString("version", ""),
	)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultsOf(results), nil
}

func (srv *Server) handleMatch(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.search == nil {
		return mcp.NewToolResultError("search service not initialized"), nil
	}

	results, err := srv.search.Match(ctx, search.MatchRequest{
		Text:    text,
		Project: req.GetString("project", ""),
		Version: req.GetString("version", ""),
		Limit:   req.GetInt("limit", constants.DefaultMatchLimit),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultsOf(results), nil
}

func (srv *Server) handleIngestFile(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.ingester == nil {
		return mcp.NewToolResultError("ingester not initialized"), nil
	}

	res, err := srv.ingester.IngestFile(ctx, indexer.FileRequest{
		Content:     []byte(content),
		Path:        filename,
		Project:     req.GetString("project", ""),
		Version:     req.GetString("version", ""),
		DisplayName: filename,
	})
	if err != nil {
		srv.log.Warn("ingest upload failed",
			zap.String("filename", filename),
			zap.Int("stored", len(res.IDs)),
			zap.Error(err),
		)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{
		"filename":   filename,
		"inserted":   len(res.IDs),
		"ids":        res.IDs,
		"duplicates": res.Duplicates,
	}), nil
}

func (srv *Server) handleListSymbols(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	if srv.search == nil {
		return mcp.NewToolResultError("search service not initialized"), nil
	}
	results, err := srv.search.ListSymbols(ctx,
		req.GetString("project", ""),
		req.GetString("version", ""),
	)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultsOf(results), nil
}

// resultsOf wraps results in an object since structured content must be one.
func resultsOf(results []search.Result) *mcp.CallToolResult {
	if results == nil {
		results = []search.Result{}
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"results": results})
}
