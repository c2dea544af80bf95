package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/rag"
)

var summarizeStyle string

var summarizeCmd = &cobra.Command{
	Use:   "summarize [text]",
	Short: "Summarize text in a chosen style",
	Long: `Summarize text with the completion model. The text comes from the
arguments, or from stdin when no arguments are given.

Styles: ` + strings.Join(rag.SummaryStyles(), ", "),
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeStyle, "style", rag.StyleConcise,
		"summary style")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	text := strings.Join(args, " ")
	if text == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = strings.TrimSpace(string(raw))
	}
	if text == "" {
		return fmt.Errorf("no text to summarize")
	}

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	summary, err := a.Orchestrator.Summarize(ctx, text, summarizeStyle)
	if err != nil {
		return fmt.Errorf("summarizing: %w", err)
	}

	entry := index.PromptEntry{
		ID:     uuid.New().String(),
		Prompt: rag.SummaryPrompt(text, summarizeStyle),
		Result: summary,
	}
	if err := a.Index.AddPromptResult(ctx, entry); err != nil {
		a.Logger.Warn("storing summary failed", "error", err, "id", entry.ID)
	}

	cmd.Println(summary)
	return nil
}
