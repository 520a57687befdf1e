package mcp

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
)

// Serve blocks serving s over the named transport. Network transports
// listen on address, or DefaultListenAddr when it is empty.
func Serve(s *server.MCPServer, transportName, address string) error {
	if address == "" {
		address = DefaultListenAddr
	}
	switch transportName {
	case TransportStdio:
		return server.ServeStdio(s)
	case TransportHTTP:
		return server.NewStreamableHTTPServer(s).Start(address)
	case TransportSSE:
		// SSE exposes two endpoints under the base path
		sseSrv := server.NewSSEServer(s,
			server.WithBaseURL(""),
			server.WithStaticBasePath(SSEBasePath),
		)
		return sseSrv.Start(address)
	default:
		return fmt.Errorf(
			"unsupported transport: %s (supported: %s, %s, %s)",
			transportName, TransportStdio, TransportHTTP, TransportSSE,
		)
	}
}
