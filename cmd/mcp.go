package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	mcpSDK "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Run the Model Context Protocol server, exposing ask and
search_documents as tools over stdin/stdout. Logs go to stderr so the
JSON-RPC stream stays clean.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	server, err := mcp.NewServer(mcp.Config{
		Name:     "docsage",
		Version:  AppVersion,
		Asker:    a.Orchestrator,
		Embedder: a.Embedding,
		Searcher: a.Index,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	return server.Run(ctx, &mcpSDK.StdioTransport{})
}
