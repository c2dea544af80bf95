package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var askTranslateTo string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askTranslateTo, "translate-to", "",
		"translate the answer into this language code (e.g. de)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	question := strings.Join(args, " ")
	answer, err := a.Orchestrator.Ask(ctx, question, nil)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	text := answer.Answer
	if askTranslateTo != "" {
		if a.Translator == nil {
			return fmt.Errorf("translation is not configured")
		}
		text, err = a.Translator.Translate(ctx, text, askTranslateTo)
		if err != nil {
			return fmt.Errorf("translating answer: %w", err)
		}
	}

	cmd.Println(renderMarkdown(text))
	if answer.Sources != "" {
		cmd.Printf("Sources: %s\n", answer.Sources)
	}
	if answer.Warning != "" {
		cmd.PrintErrf("Warning: %s\n", answer.Warning)
	}
	return nil
}

// renderMarkdown renders the answer for the terminal, falling back to
// plain text when glamour cannot initialize.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSuffix(rendered, "\n")
}
