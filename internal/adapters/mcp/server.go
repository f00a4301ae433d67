package mcpadapter

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/nobelvoices/laureate-rag/internal/core/ports"
)

const (
	// ServerName is the MCP server name advertised during initialization.
	ServerName = "laureate-rag"
	// ServerVersion is the current server version.
	ServerVersion = "1.0.0"
)

// Server exposes the query pipeline over the Model Context Protocol so
// LLM clients can classify questions, retrieve speech passages and look up
// award metadata without going through the HTTP surface.
type Server struct {
	mcp       *server.MCPServer
	queryUC   ports.QueryRouter
	laureates ports.LaureateRepository
}

// NewServer wires the MCP server around already-constructed use cases.
func NewServer(queryUC ports.QueryRouter, laureates ports.LaureateRepository) *Server {
	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		queryUC:   queryUC,
		laureates: laureates,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	_ = ctx
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(classifyQueryTool(), s.handleClassifyQuery)
	s.mcp.AddTool(queryLaureatesTool(), s.handleQueryLaureates)
	s.mcp.AddTool(listLaureatesTool(), s.handleListLaureates)
}
