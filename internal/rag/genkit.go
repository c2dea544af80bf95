package rag

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/docsage/docsage/internal/log"
)

// GenkitCompleter implements Completer on a Genkit model.
type GenkitCompleter struct {
	g         *genkit.Genkit
	modelName string
	maxTokens int
	limiter   *rate.Limiter
	logger    log.Logger
}

// NewGenkitCompleter creates a completer. modelName is provider-qualified,
// e.g. "openai/gpt-4o-mini".
func NewGenkitCompleter(g *genkit.Genkit, modelName string, maxTokens int, logger log.Logger) (*GenkitCompleter, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &GenkitCompleter{
		g:         g,
		modelName: modelName,
		maxTokens: maxTokens,
		// 10 requests/second with bursts of 30, matching the embedding
		// provider's budget.
		limiter: rate.NewLimiter(10, 30),
		logger:  logger,
	}, nil
}

// Complete renders history as alternating user/model messages and generates
// a completion for prompt.
func (c *GenkitCompleter) Complete(ctx context.Context, prompt string, history []Turn, temperature float32) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	messages := make([]*ai.Message, 0, len(history)*2)
	for _, turn := range history {
		messages = append(messages,
			ai.NewUserMessage(ai.NewTextPart(turn.Question)),
			ai.NewModelMessage(ai.NewTextPart(turn.Answer)),
		)
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithPrompt(prompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     float64(temperature),
			MaxOutputTokens: c.maxTokens,
		}),
	}
	if len(messages) > 0 {
		opts = append(opts, ai.WithMessages(messages...))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	c.logger.Debug("completion generated",
		"model", c.modelName,
		"history_turns", len(history))
	return resp.Text(), nil
}
