// Package rag assembles grounded answers: it retrieves the chunks most
// similar to a question from the content index, renders them into a prompt,
// and has the language model complete the answer with the conversation
// history as prior turns.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/log"
)

var (
	// ErrRetrievalFailed indicates the vector search could not run.
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrCompletionUnavailable indicates the completion backend could not
	// be reached.
	ErrCompletionUnavailable = errors.New("completion service unavailable")
)

// Embedder turns a question into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs similarity search over the content namespace.
type Searcher interface {
	Search(ctx context.Context, vector []float32, opts ...index.SearchOption) ([]index.Result, error)
}

// Completer produces a model completion for a rendered prompt, with the
// conversation history supplied as prior turns.
type Completer interface {
	Complete(ctx context.Context, prompt string, history []Turn, temperature float32) (string, error)
}

// Answer is the result of one orchestrated question.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Context  string `json:"context"`
	Sources  string `json:"sources"`
	Warning  string `json:"warning,omitempty"`
}

// Options configures an Orchestrator.
type Options struct {
	// TopK is how many chunks retrieval feeds into the prompt.
	TopK int
	// Template is the custom prompt template; empty selects DefaultTemplate.
	Template string
	// Temperature for the completion call, in [0, 1].
	Temperature float32
}

// Orchestrator coordinates embed, search, and complete for one question.
// It holds no conversation state; history flows in and out per call.
type Orchestrator struct {
	embedder  Embedder
	searcher  Searcher
	completer Completer
	opts      Options
	logger    log.Logger
}

// New creates an orchestrator.
func New(embedder Embedder, searcher Searcher, completer Completer, opts Options, logger log.Logger) (*Orchestrator, error) {
	if embedder == nil || searcher == nil || completer == nil {
		return nil, fmt.Errorf("embedder, searcher, and completer are required")
	}
	if opts.TopK < 1 {
		opts.TopK = 4
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Orchestrator{
		embedder:  embedder,
		searcher:  searcher,
		completer: completer,
		opts:      opts,
		logger:    logger,
	}, nil
}

// Options returns the configured options. Callers that allow per-request
// overrides start from these and hand the result to AskWith.
func (o *Orchestrator) Options() Options {
	return o.opts
}

// Ask answers a question grounded on the content index. The history is
// passed through to the model as prior turns and never mutated; appending
// the result to the conversation is the caller's job.
//
// Zero retrieved chunks is not an error: the model answers with an empty
// context block and the sources string stays empty.
func (o *Orchestrator) Ask(ctx context.Context, question string, history []Turn) (*Answer, error) {
	return o.AskWith(ctx, question, history, o.opts)
}

// AskWith is Ask with the configured options replaced for this call.
func (o *Orchestrator) AskWith(ctx context.Context, question string, history []Turn, opts Options) (*Answer, error) {
	if opts.TopK < 1 {
		opts.TopK = o.opts.TopK
	}

	vector, err := o.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	results, err := o.searcher.Search(ctx, vector, index.WithTopK(opts.TopK))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	contextText := joinContext(results)
	prompt, warning := renderPrompt(opts.Template, contextText, question)
	if warning != "" {
		o.logger.Warn("prompt template fallback", "reason", warning)
	}

	answer, err := o.completer.Complete(ctx, prompt, history, opts.Temperature)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCompletionUnavailable, err)
	}

	o.logger.Debug("answered question",
		"chunks", len(results),
		"history_turns", len(history))

	return &Answer{
		Question: question,
		Answer:   strings.TrimSpace(answer),
		Context:  contextText,
		Sources:  joinSources(results),
		Warning:  warning,
	}, nil
}

// joinContext concatenates retrieved chunk texts in rank order.
func joinContext(results []index.Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Content)
	}
	return strings.Join(parts, "\n")
}

// joinSources concatenates each chunk's filename and chunk identifier into
// one display string, deduplicated in rank order.
func joinSources(results []index.Result) string {
	seen := make(map[string]struct{}, len(results))
	parts := make([]string, 0, len(results))
	for _, r := range results {
		source := r.Metadata["filename"]
		if source == "" {
			source = r.Metadata["source"]
		}
		if chunk := r.Metadata["chunk"]; chunk != "" {
			source += " [chunk " + chunk + "]"
		}
		if source == "" {
			source = r.Key
		}
		if _, dup := seen[source]; dup {
			continue
		}
		seen[source] = struct{}{}
		parts = append(parts, source)
	}
	return strings.Join(parts, "; ")
}
