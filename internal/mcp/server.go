package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/llmlibrarian/internal/query"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Asker is the part of the query engine the tools call.
type Asker interface {
	Ask(ctx context.Context, req query.Request) (*query.Response, error)
	Silos() ([]query.SiloStatus, error)
}

// Server wraps an MCP server that exposes the library to agents.
type Server struct {
	engine Asker
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server around engine.
func NewServer(engine Asker) *Server {
	s := &Server{engine: engine}

	s.mcp = server.NewMCPServer(
		"llmli",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askTool, s.handleAsk)
	s.mcp.AddTool(listSilosTool, s.handleListSilos)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
