// Package embedding wraps a Genkit embedder behind a small provider type
// producing fixed-dimension float32 vectors. The same provider serves both
// ingestion (chunk vectors) and querying (question vectors).
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"

	"github.com/docsage/docsage/internal/log"
)

var (
	// ErrUnavailable indicates the embedding backend could not be reached.
	ErrUnavailable = errors.New("embedding service unavailable")

	// ErrEmptyInput indicates the input text is empty after trimming.
	// Empty input is rejected rather than embedded; a vector of an empty
	// string carries no retrieval signal and would pollute the index.
	ErrEmptyInput = errors.New("empty embedding input")

	// ErrDimensionMismatch indicates the backend returned a vector of an
	// unexpected width.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Provider produces embeddings of a fixed dimension.
type Provider struct {
	embedder   ai.Embedder
	dimensions int
	limiter    *rate.Limiter
	logger     log.Logger
}

// New creates a provider around a Genkit embedder. dimensions is the vector
// width the index schema expects; every returned vector is checked against it.
func New(embedder ai.Embedder, dimensions int, logger log.Logger) (*Provider, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if dimensions < 1 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Provider{
		embedder:   embedder,
		dimensions: dimensions,
		// 10 requests/second sustained, bursts of 30. Keeps batch ingestion
		// under typical embedding API rate limits.
		limiter: rate.NewLimiter(10, 30),
		logger:  logger,
	}, nil
}

// Dimensions returns the vector width this provider produces.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// Embed returns the vector for a single text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per input text, in input order.
// Any empty text rejects the whole batch with ErrEmptyInput.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	docs := make([]*ai.Document, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: text %d of %d", ErrEmptyInput, i, len(texts))
		}
		docs = append(docs, &ai.Document{
			Content: []*ai.Part{ai.NewTextPart(text)},
		})
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := p.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			ErrUnavailable, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) != p.dimensions {
			return nil, fmt.Errorf("%w: got %d, want %d",
				ErrDimensionMismatch, len(e.Embedding), p.dimensions)
		}
		vectors[i] = e.Embedding
	}

	p.logger.Debug("embedded batch", "texts", len(texts), "dimensions", p.dimensions)
	return vectors, nil
}
