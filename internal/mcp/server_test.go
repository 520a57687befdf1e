package mcp

import (
	"context"
	"testing"

	"github.com/0x5457/dill/internal/embeddings"
	"github.com/0x5457/dill/internal/indexer/pipeline"
	"github.com/0x5457/dill/internal/parser/grammar"
	"github.com/0x5457/dill/internal/parser/tsparser"
	"github.com/0x5457/dill/internal/search"
	"github.com/0x5457/dill/internal/storage/memory"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const shapesC = `struct point { int x; int y; };

int area(int w, int h) {
    return w * h;
}

int perimeter(int w, int h) {
    return 2 * (w + h);
}
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg, err := grammar.Default()
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	emb := embeddings.NewLocal(16)
	store := memory.New(0)
	return &Server{
		search:   &search.Service{Embedder: emb, Store: store},
		ingester: pipeline.New(tsparser.New(reg), emb, store, zap.NewNop(), pipeline.Options{}),
		log:      zap.NewNop(),
	}
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func structured(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, res.IsError, "tool error: %v", res.Content)
	out, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok)
	return out
}

func results(t *testing.T, res *mcp.CallToolResult) []search.Result {
	t.Helper()
	out, ok := structured(t, res)["results"].([]search.Result)
	require.True(t, ok)
	return out
}

func ingestShapes(t *testing.T, srv *Server, project string) {
	t.Helper()
	res, err := srv.handleIngestFile(context.Background(), call("ingest_file", map[string]any{
		"content":  shapesC,
		"filename": "shapes.c",
		"project":  project,
	}))
	require.NoError(t, err)
	out := structured(t, res)
	assert.Equal(t, 3, out["inserted"])
	assert.Equal(t, "shapes.c", out["filename"])
}

func TestNew(t *testing.T) {
	assert.NotNil(t, New(nil, nil, nil))
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		toolFunc func() mcp.Tool
		toolName string
		required []string
	}{
		{newFindSymbolTool, "find_symbol", []string{"name"}},
		{newMatchTool, "match", []string{"text"}},
		{newIngestFileTool, "ingest_file", []string{"content", "filename"}},
		{newListSymbolsTool, "list_symbols", nil},
	}

	for _, tt := range tests {
		t.Run(tt.toolName, func(t *testing.T) {
			tool := tt.toolFunc()
			assert.Equal(t, tt.toolName, tool.Name)
			assert.NotEmpty(t, tool.Description)
			assert.Contains(t, tool.InputSchema.Properties, "project")
			assert.Contains(t, tool.InputSchema.Properties, "version")
			assert.ElementsMatch(t, tt.required, tool.InputSchema.Required)
		})
	}
}

func TestMatchToolSchema(t *testing.T) {
	tool := newMatchTool()
	textProp := tool.InputSchema.Properties["text"].(map[string]any)
	assert.Equal(t, "string", textProp["type"])
	limitProp := tool.InputSchema.Properties["limit"].(map[string]any)
	assert.Equal(t, "number", limitProp["type"])
}

func TestScopeDefaults(t *testing.T) {
	tests := []struct {
		toolFunc func() mcp.Tool
		project  any
		version  any
	}{
		{newFindSymbolTool, "default", "0.0.0"},
		{newIngestFileTool, "default", "0.0.0"},
		{newMatchTool, nil, nil},
		{newListSymbolsTool, nil, nil},
	}
	for _, tt := range tests {
		tool := tt.toolFunc()
		t.Run(tool.Name, func(t *testing.T) {
			project := tool.InputSchema.Properties["project"].(map[string]any)
			version := tool.InputSchema.Properties["version"].(map[string]any)
			assert.Equal(t, tt.project, project["default"])
			assert.Equal(t, tt.version, version["default"])
		})
	}
}

func TestHandlersRequireArguments(t *testing.T) {
	ctx := context.Background()
	srv := &Server{log: zap.NewNop()}

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	}{
		{"find_symbol", srv.handleFindSymbol},
		{"match", srv.handleMatch},
		{"ingest_file", srv.handleIngestFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(ctx, call(tt.name, map[string]any{}))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.NotEmpty(t, result.Content)
		})
	}
}

func TestHandlersWithoutServices(t *testing.T) {
	ctx := context.Background()
	srv := &Server{log: zap.NewNop()}

	result, err := srv.handleListSymbols(ctx, call("list_symbols", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.handleIngestFile(ctx, call("ingest_file", map[string]any{
		"content":  "int f(void) { return 0; }",
		"filename": "f.c",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestIngestThenFind(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	ingestShapes(t, srv, "")

	res, err := srv.handleFindSymbol(ctx, call("find_symbol", map[string]any{"name": "area"}))
	require.NoError(t, err)
	found := results(t, res)
	require.Len(t, found, 1)
	require.NotNil(t, found[0].Symbol)
	assert.Equal(t, "area", found[0].Symbol.Name)
	assert.Equal(t, "default", found[0].Symbol.Project)
	assert.Equal(t, "0.0.0", found[0].Symbol.Version)
	assert.Equal(t, 3, found[0].Symbol.StartLine)
	assert.Equal(t, 5, found[0].Symbol.EndLine)

	res, err = srv.handleFindSymbol(ctx, call("find_symbol", map[string]any{
		"name":    "area",
		"version": "9.9.9",
	}))
	require.NoError(t, err)
	assert.Empty(t, results(t, res))
}

func TestMatchAndList(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	ingestShapes(t, srv, "geo")

	res, err := srv.handleMatch(ctx, call("match", map[string]any{
		"text":  "int perimeter(int w, int h) {\n    return 2 * (w + h);\n}",
		"limit": 2,
	}))
	require.NoError(t, err)
	ranked := results(t, res)
	require.Len(t, ranked, 2)
	assert.Equal(t, "perimeter", ranked[0].Symbol.Name)
	assert.InDelta(t, 1.0, ranked[0].Similarity, 1e-6)

	res, err = srv.handleMatch(ctx, call("match", map[string]any{
		"text":    "perimeter",
		"project": "other",
	}))
	require.NoError(t, err)
	assert.Empty(t, results(t, res))

	res, err = srv.handleListSymbols(ctx, call("list_symbols", map[string]any{"project": "geo"}))
	require.NoError(t, err)
	var names []string
	for _, r := range results(t, res) {
		names = append(names, r.Symbol.Name)
	}
	assert.ElementsMatch(t, []string{"point", "area", "perimeter"}, names)
}

func TestIngestUnsupportedFile(t *testing.T) {
	srv := newTestServer(t)
	res, err := srv.handleIngestFile(context.Background(), call("ingest_file", map[string]any{
		"content":  "print('hi')\n",
		"filename": "hello.py",
	}))
	require.NoError(t, err)
	assert.Equal(t, 0, structured(t, res)["inserted"])
}
