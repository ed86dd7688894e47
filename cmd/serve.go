package cmd

import (
	"context"
	"fmt"

	"github.com/NexusAI-AX/mcp-gateway/internal/app"

	"github.com/spf13/cobra"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveConfigPath is the path to the mcp_config.json document.
var serveConfigPath string

// serveHost and servePort are the gateway's listen address.
var serveHost string
var servePort int

// serveReload enables watching the configuration file for changes.
var serveReload bool

// serveCmd defines the serve command structure. It starts the gateway: it
// loads the configured MCP servers, auto-starts the ones marked for it, and
// serves the HTTP/websocket surface until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway, supervising and multiplexing configured MCP servers",
	Long: `Starts the gateway: loads mcp_config.json, spawns and initializes every
server marked auto_start, and serves the HTTP and websocket API until
interrupted with Ctrl+C.

Use --config to point at a non-default configuration path, and --reload to
watch it for changes and apply them live.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveConfigPath, serveHost, servePort, serveReload)

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable verbose logging")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "mcp_config.json", "Path to the MCP server configuration document")
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to listen on")
	serveCmd.Flags().IntVar(&servePort, "port", 8765, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveReload, "reload", false, "Watch the configuration file for changes and reapply it automatically")
}
