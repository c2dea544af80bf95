// Package cmd contains the docsage command line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/app"
	"github.com/docsage/docsage/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "docsage",
	Short: "docsage answers questions about your private documents",
	Long: `docsage indexes private documents into a vector store and answers
questions about them with a language model, grounded on the most relevant
chunks and citing the documents they came from.

Running docsage without a subcommand starts the interactive chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setupApp loads and validates the configuration and wires the application.
// The caller owns the returned App and must Close it.
func setupApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return app.Setup(ctx, cfg)
}
