package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/carrier"
	cmcp "github.com/carrierd/carrierd/internal/mcp"
	"github.com/carrierd/carrierd/internal/service"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes carrier operations
as tools for AI agents. Every tool runs as the API key in mcp.api_key
(CARRIERD_MCP_API_KEY), so the agent can read and change exactly what that key may.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for direct integration with desktop MCP clients.

In HTTP mode, the server listens on the specified port for streamable HTTP connections.`,
		Example: `  CARRIERD_MCP_API_KEY=carrierd_... carrierd mcp
  carrierd mcp --transport http --port 3001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP()
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	viper.BindPFlag("mcp.transport", cmd.Flags().Lookup("transport"))
	viper.BindPFlag("mcp.port", cmd.Flags().Lookup("port"))

	return cmd
}

func runMCP() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	if cfg.MCP.APIKey == "" {
		return fmt.Errorf("mcp.api_key is required; create one with 'carrierd key create' and set CARRIERD_MCP_API_KEY")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cred, err := service.NewAuthService(st, "").ValidateAPIKey(context.Background(), cfg.MCP.APIKey)
	if err != nil {
		return fmt.Errorf("mcp.api_key: %w", err)
	}

	catalog, err := apierr.NewCatalog(cfg.Docs.BaseURL)
	if err != nil {
		return fmt.Errorf("load message catalog: %w", err)
	}

	mcpSrv := cmcp.NewMCPServer(carrier.NewService(st, logger), st, cred, catalog, versionString(), logger)

	switch cfg.MCP.Transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		return mcpSrv.ServeHTTP(fmt.Sprintf(":%d", cfg.MCP.Port))
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", cfg.MCP.Transport)
	}
}
