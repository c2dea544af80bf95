package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP REST API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"listen address (defaults to the configured server_addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	server, err := api.NewServer(api.ServerConfig{
		Logger:         a.Logger,
		Orchestrator:   a.Orchestrator,
		Ingestor:       a.Pipeline,
		Documents:      a.Index,
		Prompts:        a.Index,
		Translator:     a.Translator,
		Checks:         a.Checks(),
		PromptLogLimit: a.Config.PromptLogLimit,
	})
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = a.Config.ServerAddr
	}
	return server.Run(ctx, addr)
}
