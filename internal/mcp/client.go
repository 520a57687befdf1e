package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/0x5457/dill/internal/constants"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Transports understood by Connect and by the serve command.
const (
	TransportStdio  = "stdio"
	TransportHTTP   = "http"
	TransportSSE    = "sse"
	TransportInproc = "inproc"
)

// Default addresses for the network transports.
const (
	DefaultListenAddr = ":8080"
	DefaultHTTPURL    = "http://127.0.0.1:8080/mcp"
	DefaultSSEURL     = "http://127.0.0.1:8080/mcp/sse"
	SSEBasePath       = "/mcp"
)

const startTimeout = 10 * time.Second

// Client is an initialized MCP client session.
type Client struct{ c *client.Client }

// NewStdioClient launches command with args and talks to it over stdio.
func NewStdioClient(ctx context.Context, command string, args ...string) (*Client, error) {
	return start(ctx, transport.NewStdio(command, nil, args...))
}

// NewHTTPClient connects to a streamable HTTP server.
func NewHTTPClient(ctx context.Context, url string) (*Client, error) {
	tr, err := transport.NewStreamableHTTP(url)
	if err != nil {
		return nil, fmt.Errorf("new streamable http transport: %w", err)
	}
	return start(ctx, tr)
}

// NewSSEClient connects to an SSE server.
func NewSSEClient(ctx context.Context, url string) (*Client, error) {
	tr, err := transport.NewSSE(url)
	if err != nil {
		return nil, fmt.Errorf("new sse transport: %w", err)
	}
	return start(ctx, tr)
}

// NewInProcessClient talks to s without leaving the process.
func NewInProcessClient(ctx context.Context, s *server.MCPServer) (*Client, error) {
	return start(ctx, transport.NewInProcessTransport(s))
}

// Connect opens a client for a network transport, using the default address
// when none is given.
func Connect(ctx context.Context, transportName, address string) (*Client, error) {
	switch transportName {
	case TransportHTTP:
		if address == "" {
			address = DefaultHTTPURL
		}
		return NewHTTPClient(ctx, address)
	case TransportSSE:
		if address == "" {
			address = DefaultSSEURL
		}
		return NewSSEClient(ctx, address)
	default:
		return nil, fmt.Errorf(
			"unsupported client transport: %s (supported: %s, %s)",
			transportName, TransportHTTP, TransportSSE,
		)
	}
}

func start(ctx context.Context, tr transport.Interface) (*Client, error) {
	cli := client.NewClient(tr)

	ctxStart, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := cli.Start(ctxStart); err != nil {
		return nil, fmt.Errorf("start mcp client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: constants.AppName + "-cli", Version: ServerVersion}
	initReq.Params.Capabilities = mcp.ClientCapabilities{}

	if _, err := cli.Initialize(ctx, initReq); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("init mcp client: %w", err)
	}
	return &Client{c: cli}, nil
}

func (c *Client) Close() error { return c.c.Close() }

func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	res, err := c.c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	return res.Tools, nil
}

func (c *Client) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	return c.c.CallTool(ctx, mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}})
}
