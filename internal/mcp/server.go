package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/carrier"
	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/store"
)

// MCPServer wraps the mcp-go server with carrierd tool and resource
// registrations. Every tool acts as one credential, so an agent sees and
// changes exactly what that API key may.
type MCPServer struct {
	carriers *carrier.Service
	store    *store.Store
	cred     *model.Credential
	catalog  *apierr.Catalog
	logger   *slog.Logger
	server   *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all carrier tools and
// resources. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(carriers *carrier.Service, st *store.Store, cred *model.Credential,
	catalog *apierr.Catalog, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MCPServer{
		carriers: carriers,
		store:    st,
		cred:     cred,
		catalog:  catalog,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"carrierd",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance. Useful for
// advanced configuration or testing.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, for clients that launch
// carrierd as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode", "key", s.cred.KeyPrefix)
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":3001"). This is suitable for remote MCP clients.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr, "key", s.cred.KeyPrefix)
	return httpServer.Start(addr)
}

// readOnlyAnnotation and mutatingAnnotation mark tools for clients that
// confirm changes before running them.
func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
