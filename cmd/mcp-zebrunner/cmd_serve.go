package main

import (
	"context"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maksimsarychau/mcp-zebrunner/internal/logging"
	mcpserver "github.com/maksimsarychau/mcp-zebrunner/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout. MCP clients (Cursor, Claude
Desktop) connect via their mcp.json and call the Zebrunner tools directly.

The server monitors for parent process death. When the client disconnects or
restarts, the server self-terminates to prevent zombie processes.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	analyzer, adapter, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	srv := mcpserver.NewServer(analyzer, adapter, cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting mcp-zebrunner server over stdio (parent watchdog active)",
		"baseURL", cfg.Zebrunner.BaseURL)
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
