package ingest

import (
	"context"
	"fmt"
)

// The deletion helpers compose listing and delete-by-key. Listing and
// deleting are separate store round trips, so a concurrent ingestion of the
// same filename between them can leave entries behind. That race is
// accepted as best-effort; re-running the delete converges.

// DeleteEmbedding removes a single entry by key. Deleting a missing key is
// a no-op.
func (p *Pipeline) DeleteEmbedding(ctx context.Context, key string) error {
	if _, err := p.indexer.DeleteKeys(ctx, []string{key}); err != nil {
		return fmt.Errorf("deleting embedding %q: %w", key, err)
	}
	return nil
}

// DeleteFile removes every entry whose metadata filename matches.
// Returns the number of entries removed.
func (p *Pipeline) DeleteFile(ctx context.Context, filename string) (int64, error) {
	entries, err := p.indexer.GetAll(ctx, listLimit)
	if err != nil {
		return 0, fmt.Errorf("listing entries: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if e.Metadata["filename"] == filename {
			keys = append(keys, e.Key)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := p.indexer.DeleteKeys(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("deleting entries for %q: %w", filename, err)
	}
	p.logger.Info("deleted file embeddings", "filename", filename, "deleted", deleted)
	return deleted, nil
}

// DeleteAll removes every content entry.
func (p *Pipeline) DeleteAll(ctx context.Context) (int64, error) {
	deleted, err := p.indexer.DeleteByPattern(ctx, "*")
	if err != nil {
		return 0, fmt.Errorf("deleting all embeddings: %w", err)
	}
	p.logger.Info("deleted all embeddings", "deleted", deleted)
	return deleted, nil
}
