package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/index"
)

var (
	promptsRunFilename   string
	promptsClearPattern  string
	promptsListLimitFlag int
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage stored prompt results",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored prompt results",
	RunE:  runPromptsList,
}

var promptsRunCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run a prompt against the model and store the result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPromptsRun,
}

var promptsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete stored prompt results",
	RunE:  runPromptsClear,
}

func init() {
	promptsListCmd.Flags().IntVar(&promptsListLimitFlag, "limit", 0,
		"maximum results to list (0 uses the configured limit)")
	promptsRunCmd.Flags().StringVar(&promptsRunFilename, "filename", "",
		"document filename to associate with the result")
	promptsClearCmd.Flags().StringVar(&promptsClearPattern, "pattern", "*",
		"glob pattern of result IDs to delete")
	promptsCmd.AddCommand(promptsListCmd, promptsRunCmd, promptsClearCmd)
	rootCmd.AddCommand(promptsCmd)
}

func runPromptsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	limit := a.Config.NormalizePromptLogLimit(promptsListLimitFlag)
	entries, err := a.Index.PromptResults(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing prompt results: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("No prompt results stored.")
		return nil
	}

	for _, entry := range entries {
		cmd.Printf("%s  [%s]\n  prompt: %s\n  result: %s\n",
			entry.ID, entry.Filename, entry.Prompt, entry.Result)
	}
	return nil
}

func runPromptsRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	prompt := args[0]
	for _, arg := range args[1:] {
		prompt += " " + arg
	}

	result, err := a.Orchestrator.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("running prompt: %w", err)
	}

	entry := index.PromptEntry{
		ID:       uuid.New().String(),
		Filename: promptsRunFilename,
		Prompt:   prompt,
		Result:   result,
	}
	if err := a.Index.AddPromptResult(ctx, entry); err != nil {
		return fmt.Errorf("storing prompt result: %w", err)
	}

	cmd.Println(result)
	cmd.Printf("Stored as %s\n", entry.ID)
	return nil
}

func runPromptsClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	deleted, err := a.Index.DeletePromptResults(ctx, promptsClearPattern)
	if err != nil {
		return fmt.Errorf("deleting prompt results: %w", err)
	}
	cmd.Printf("Deleted %d result(s)\n", deleted)
	return nil
}
