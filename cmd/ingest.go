package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/ingest"
)

// lockRetryDelay is how often a waiting ingest retries the lock.
const lockRetryDelay = 500 * time.Millisecond

var ingestCmd = &cobra.Command{
	Use:   "ingest [source...]",
	Short: "Extract, embed, and index documents",
	Long: `Ingest downloads each source (URL or local file), splits it into
page-grouped chunks, embeds them, and upserts them into the content index.
Unchanged chunks are skipped, so re-running on the same documents is cheap.

Only one ingest runs at a time; concurrent invocations wait on a lock file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("getting home directory: %w", err)
	}
	lockPath := filepath.Join(home, ".docsage", "ingest.lock")
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquiring ingest lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another ingest is already running")
	}
	defer func() { _ = lock.Unlock() }()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	docs := make([]ingest.Document, 0, len(args))
	for _, source := range args {
		docs = append(docs, ingest.Document{
			Filename: filepath.Base(source),
			Source:   source,
		})
	}

	report, err := a.Pipeline.IngestBatch(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingesting documents: %w", err)
	}

	cmd.Printf("Succeeded: %d  Skipped: %d  Failed: %d\n",
		report.Succeeded, report.Skipped, report.Failed)
	cmd.Printf("Chunks indexed: %d  Chunks skipped: %d\n",
		report.ChunksIndexed, report.ChunksSkipped)
	for filename, msg := range report.Errors {
		cmd.PrintErrf("  %s: %s\n", filename, msg)
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d document(s) failed", report.Failed)
	}
	return nil
}
