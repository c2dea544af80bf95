// Package ingest drives the document ingestion pipeline: extract chunks,
// embed them, and upsert them into the content index under stable
// content-derived keys, so re-ingesting an unchanged document is a no-op.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/log"
)

// Document is one ingestion input. Source is the locator handed to the
// layout analyzer; Filename is the human-readable name stored in metadata.
type Document struct {
	Filename string
	Source   string
}

// Report summarizes one ingestion batch. A document whose chunks all
// already exist counts as skipped; a document that fails at any stage
// counts as failed and never aborts the rest of the batch.
type Report struct {
	Succeeded     int
	Skipped       int
	Failed        int
	ChunksIndexed int
	ChunksSkipped int
	// Errors maps a failed document's filename to its error message.
	Errors map[string]string
}

// Extractor produces a document's chunks in page order.
type Extractor interface {
	Extract(ctx context.Context, locator string) ([]string, error)
	PagesPerGroup() int
}

// Embedder produces one vector per text, order-preserving.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer is the slice of the content index the pipeline needs.
type Indexer interface {
	Upsert(ctx context.Context, key, content string, metadata map[string]string, vector []float32) error
	ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error)
	KeysMatching(ctx context.Context, pattern string) ([]string, error)
	GetAll(ctx context.Context, limit int) ([]index.Entry, error)
	DeleteKeys(ctx context.Context, keys []string) (int64, error)
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
}

// listLimit caps the listing used by the filter-then-delete helpers.
const listLimit = 100000

// Pipeline ingests document batches.
type Pipeline struct {
	extractor Extractor
	embedder  Embedder
	indexer   Indexer
	logger    log.Logger
}

// New creates a pipeline.
func New(extractor Extractor, embedder Embedder, indexer Indexer, logger log.Logger) (*Pipeline, error) {
	if extractor == nil || embedder == nil || indexer == nil {
		return nil, fmt.Errorf("extractor, embedder, and indexer are required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		indexer:   indexer,
		logger:    logger,
	}, nil
}

// IngestBatch ingests each document in order. One document's failure is
// recorded in the report and the batch continues.
func (p *Pipeline) IngestBatch(ctx context.Context, docs []Document) (*Report, error) {
	report := &Report{Errors: make(map[string]string)}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		indexed, skipped, err := p.ingestOne(ctx, doc)
		if err != nil {
			report.Failed++
			report.Errors[doc.Filename] = err.Error()
			p.logger.Warn("document ingestion failed",
				"filename", doc.Filename, "error", err)
			continue
		}

		report.ChunksIndexed += indexed
		report.ChunksSkipped += skipped
		if indexed == 0 {
			report.Skipped++
		} else {
			report.Succeeded++
		}
		p.logger.Info("document ingested",
			"filename", doc.Filename,
			"chunks_indexed", indexed,
			"chunks_skipped", skipped)
	}

	return report, nil
}

// ingestOne runs the extract, embed, and upsert sequence for one document,
// strictly in page order. Chunks whose keys already exist are skipped:
// identical content yields an identical key, so the stored entry is already
// byte-equal to what would be written. Changed content maps to a new key,
// so after the batch lands every stored key of the document that is not
// part of the current chunk set is removed. That covers both edited chunks
// and tail chunks of a document that shrank.
func (p *Pipeline) ingestOne(ctx context.Context, doc Document) (indexed, skipped int, err error) {
	chunks, err := p.extractor.Extract(ctx, doc.Source)
	if err != nil {
		return 0, 0, fmt.Errorf("extracting chunks: %w", err)
	}

	type pending struct {
		key     string
		content string
		chunk   int
	}

	var work []pending
	var keys []string
	for i, chunk := range chunks {
		if chunk == "" {
			skipped++
			continue
		}
		key := ChunkKey(doc.Source, i, chunk)
		work = append(work, pending{key: key, content: chunk, chunk: i})
		keys = append(keys, key)
	}
	if len(work) == 0 {
		return 0, skipped, nil
	}

	existing, err := p.indexer.ExistingKeys(ctx, keys)
	if err != nil {
		return 0, 0, fmt.Errorf("checking existing keys: %w", err)
	}

	current := make(map[string]bool, len(work))
	for _, w := range work {
		current[w.key] = true
	}

	var fresh []pending
	var texts []string
	for _, w := range work {
		if existing[w.key] {
			skipped++
			continue
		}
		fresh = append(fresh, w)
		texts = append(texts, w.content)
	}
	if len(fresh) == 0 {
		if err := p.pruneStale(ctx, doc.Source, current); err != nil {
			return 0, skipped, err
		}
		return 0, skipped, nil
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, skipped, fmt.Errorf("embedding chunks: %w", err)
	}

	group := p.extractor.PagesPerGroup()
	for i, w := range fresh {
		metadata := map[string]string{
			"filename": doc.Filename,
			"source":   doc.Source,
			"chunk":    strconv.Itoa(w.chunk),
			"pages":    fmt.Sprintf("%d-%d", w.chunk*group+1, (w.chunk+1)*group),
		}
		if err := p.indexer.Upsert(ctx, w.key, w.content, metadata, vectors[i]); err != nil {
			return indexed, skipped, fmt.Errorf("upserting chunk %d: %w", w.chunk, err)
		}
		indexed++
	}

	if err := p.pruneStale(ctx, doc.Source, current); err != nil {
		return indexed, skipped, err
	}

	return indexed, skipped, nil
}

// pruneStale removes stored keys of a document that are not in the current
// chunk set. Runs after the new chunks landed so a mid-batch failure never
// leaves the document without its previous content.
func (p *Pipeline) pruneStale(ctx context.Context, source string, current map[string]bool) error {
	stored, err := p.indexer.KeysMatching(ctx, DocPattern(source))
	if err != nil {
		return fmt.Errorf("listing stored chunks: %w", err)
	}

	var stale []string
	for _, key := range stored {
		if !current[key] {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	if _, err := p.indexer.DeleteKeys(ctx, stale); err != nil {
		return fmt.Errorf("deleting stale chunks: %w", err)
	}
	p.logger.Info("stale chunks removed", "source", source, "count", len(stale))
	return nil
}

// ChunkKey derives the stable key for one chunk from the document identity,
// the chunk index, and a content hash. Unchanged content maps to the same
// key; changed content maps to a new key for the same chunk slot, and the
// superseded key is pruned at the end of the ingest.
func ChunkKey(source string, chunk int, content string) string {
	sourceHash := sha256.Sum256([]byte(source))
	contentHash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("doc:%s:%d:%s",
		hex.EncodeToString(sourceHash[:8]),
		chunk,
		hex.EncodeToString(contentHash[:4]))
}

// DocPattern matches every stored chunk key of a document.
func DocPattern(source string) string {
	sourceHash := sha256.Sum256([]byte(source))
	return fmt.Sprintf("doc:%s:*", hex.EncodeToString(sourceHash[:8]))
}
