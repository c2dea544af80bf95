package rag

import (
	"context"
	"fmt"
	"strings"
)

// Summary styles.
const (
	StyleConcise = "concise"
	StyleBullets = "bullets"
	StyleSimple  = "simple"
)

// summaryPrompts maps a style to its instruction block. The document text is
// appended below the instruction.
var summaryPrompts = map[string]string{
	StyleConcise: "Summarize the following text in a short paragraph.",
	StyleBullets: "Summarize the following text as a list of bullet points covering the key facts.",
	StyleSimple:  "Explain the following text in simple terms a child could understand.",
}

// SummaryStyles lists the supported styles in display order.
func SummaryStyles() []string {
	return []string{StyleConcise, StyleBullets, StyleSimple}
}

// SummaryPrompt returns the full prompt Summarize sends for a style.
// Unknown styles fall back to the concise instruction.
func SummaryPrompt(text, style string) string {
	instruction, ok := summaryPrompts[style]
	if !ok {
		instruction = summaryPrompts[StyleConcise]
	}
	return instruction + "\n\n" + text + "\n\nSummary:"
}

// Summarize produces a summary of text in the requested style. Summaries run
// without conversation history and with deterministic sampling.
func (o *Orchestrator) Summarize(ctx context.Context, text, style string) (string, error) {
	if _, ok := summaryPrompts[style]; !ok {
		return "", fmt.Errorf("unknown summary style %q, supported: %s", style, strings.Join(SummaryStyles(), ", "))
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text to summarize is empty")
	}

	prompt := SummaryPrompt(text, style)
	result, err := o.completer.Complete(ctx, prompt, nil, 0)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletionUnavailable, err)
	}
	return strings.TrimSpace(result), nil
}

// ExtractConversation rewrites text as a question/answer dialogue, useful
// for turning documentation into FAQ material.
func (o *Orchestrator) ExtractConversation(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text to extract from is empty")
	}

	prompt := "Rewrite the following text as a dialogue of questions and answers between a customer and an agent.\n\n" +
		text + "\n\nDialogue:"
	result, err := o.completer.Complete(ctx, prompt, nil, 0)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletionUnavailable, err)
	}
	return strings.TrimSpace(result), nil
}

// Complete runs an arbitrary prompt against the completion model with the
// orchestrator's configured temperature. Used by the ad-hoc prompt flows
// that record their results in the prompt log.
func (o *Orchestrator) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is empty")
	}
	result, err := o.completer.Complete(ctx, prompt, nil, o.opts.Temperature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletionUnavailable, err)
	}
	return strings.TrimSpace(result), nil
}
