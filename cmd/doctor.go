package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/api"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check connectivity to every collaborator",
	Long: `Doctor probes the index, the embedding backend, the completion
backend, and the translator (when configured), reporting each one
independently. Exits non-zero if any probe fails.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	results, ok := api.RunChecks(ctx, a.Checks())
	for _, r := range results {
		if r.Error != "" {
			cmd.Printf("%-12s %s (%s)\n", r.Name, r.Status, r.Error)
			continue
		}
		cmd.Printf("%-12s %s\n", r.Name, r.Status)
	}

	if !ok {
		return fmt.Errorf("one or more checks failed")
	}
	return nil
}
