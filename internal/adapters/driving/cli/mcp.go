package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuker/dockit/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can read documents,
resolve dotted paths, edit values and query registered indexes.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  dockit mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  dockit mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "dockit": {
        "command": "/path/to/dockit",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := mcp.NewServer(mcpPorts())
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		cmd.Printf("MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}

// mcpPorts collects the wired services for the MCP server.
func mcpPorts() *mcp.Ports {
	ports := &mcp.Ports{Document: documentService}
	if indexService != nil {
		ports.Index = indexService
	}
	return ports
}
