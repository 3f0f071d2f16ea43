package mcp

import (
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "mercari-shopper"
	serverVersion = "1.0.0"
)

func newServer() *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)
	registerTools(s)
	return s
}

// Serve starts the MCP stdio server with all tools registered.
func Serve() error {
	return server.ServeStdio(newServer())
}
