package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	docsDeleteFilename string
	docsListLimit      int
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage indexed documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed chunks with their metadata",
	RunE:  runDocsList,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [key]",
	Short: "Delete one chunk by key, or a whole document with --filename",
	RunE:  runDocsDelete,
}

var docsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every indexed chunk",
	RunE:  runDocsClear,
}

func init() {
	docsListCmd.Flags().IntVar(&docsListLimit, "limit", 100, "maximum chunks to list")
	docsDeleteCmd.Flags().StringVar(&docsDeleteFilename, "filename", "",
		"delete all chunks of this document")
	docsCmd.AddCommand(docsListCmd, docsDeleteCmd, docsClearCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	entries, err := a.Index.GetAll(ctx, docsListLimit)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	for _, entry := range entries {
		cmd.Printf("%s  %s [chunk %s]\n",
			entry.Key, entry.Metadata["filename"], entry.Metadata["chunk"])
	}
	cmd.Printf("%d chunk(s)\n", len(entries))
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if docsDeleteFilename == "" && len(args) == 0 {
		return fmt.Errorf("provide a chunk key or --filename")
	}

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if docsDeleteFilename != "" {
		deleted, err := a.Pipeline.DeleteFile(ctx, docsDeleteFilename)
		if err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
		cmd.Printf("Deleted %d chunk(s) of %s\n", deleted, docsDeleteFilename)
		return nil
	}

	if err := a.Pipeline.DeleteEmbedding(ctx, args[0]); err != nil {
		return fmt.Errorf("deleting chunk: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}

func runDocsClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	deleted, err := a.Pipeline.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}
	cmd.Printf("Deleted %d chunk(s)\n", deleted)
	return nil
}
