package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var (
	translateTo        string
	translateLanguages bool
)

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate text with the configured translation service",
	RunE:  runTranslate,
}

func init() {
	translateCmd.Flags().StringVar(&translateTo, "to", "", "target language code (e.g. de)")
	translateCmd.Flags().BoolVar(&translateLanguages, "languages", false,
		"list supported languages and exit")
	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if a.Translator == nil {
		return fmt.Errorf("translation is not configured (set translator_endpoint and translator_key)")
	}

	if translateLanguages {
		languages, err := a.Translator.Languages(ctx)
		if err != nil {
			return fmt.Errorf("listing languages: %w", err)
		}
		names := make([]string, 0, len(languages))
		for name := range languages {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cmd.Printf("%-30s %s\n", name, languages[name])
		}
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("no text to translate")
	}
	if translateTo == "" {
		return fmt.Errorf("--to is required")
	}

	translated, err := a.Translator.Translate(ctx, strings.Join(args, " "), translateTo)
	if err != nil {
		return fmt.Errorf("translating: %w", err)
	}

	cmd.Println(translated)
	return nil
}
