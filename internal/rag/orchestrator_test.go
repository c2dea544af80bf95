package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/log"
)

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []float32{float32(len(text)), 0, 0}, nil
}

type mockSearcher struct {
	results []index.Result
	err     error
	gotOpts []index.SearchOption
}

func (m *mockSearcher) Search(_ context.Context, _ []float32, opts ...index.SearchOption) ([]index.Result, error) {
	m.gotOpts = opts
	return m.results, m.err
}

type mockCompleter struct {
	response   string
	err        error
	gotPrompt  string
	gotHistory []Turn
	gotTemp    float32
}

func (m *mockCompleter) Complete(_ context.Context, prompt string, history []Turn, temperature float32) (string, error) {
	m.gotPrompt = prompt
	m.gotHistory = history
	m.gotTemp = temperature
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func chunkResult(key, content, filename, chunk string) index.Result {
	return index.Result{
		Entry: index.Entry{
			Key:     key,
			Content: content,
			Metadata: map[string]string{
				"filename": filename,
				"chunk":    chunk,
			},
		},
	}
}

func newOrchestrator(t *testing.T, e *mockEmbedder, s *mockSearcher, c *mockCompleter, opts Options) *Orchestrator {
	t.Helper()
	o, err := New(e, s, c, opts, log.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return o
}

func TestAskGroundedAnswer(t *testing.T) {
	searcher := &mockSearcher{results: []index.Result{
		chunkResult("doc:1", "The refund window is 30 days.", "policy.pdf", "0"),
		chunkResult("doc:2", "Refunds are issued to the original payment method.", "policy.pdf", "1"),
	}}
	completer := &mockCompleter{response: "Refunds are available for 30 days."}

	o := newOrchestrator(t, &mockEmbedder{}, searcher, completer, Options{TopK: 2, Temperature: 0.7})

	answer, err := o.Ask(context.Background(), "What is the refund policy?", nil)
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if answer.Question != "What is the refund policy?" {
		t.Errorf("question = %q", answer.Question)
	}
	if answer.Answer != "Refunds are available for 30 days." {
		t.Errorf("answer = %q", answer.Answer)
	}
	if !strings.Contains(answer.Context, "30 days") || !strings.Contains(answer.Context, "original payment method") {
		t.Errorf("context missing chunk text: %q", answer.Context)
	}
	if answer.Sources != "policy.pdf [chunk 0]; policy.pdf [chunk 1]" {
		t.Errorf("sources = %q", answer.Sources)
	}
	if answer.Warning != "" {
		t.Errorf("unexpected warning: %q", answer.Warning)
	}

	// The rendered prompt embeds the retrieved context and the question.
	if !strings.Contains(completer.gotPrompt, "The refund window is 30 days.") {
		t.Errorf("prompt missing context: %q", completer.gotPrompt)
	}
	if !strings.Contains(completer.gotPrompt, "What is the refund policy?") {
		t.Errorf("prompt missing question: %q", completer.gotPrompt)
	}
	if strings.Contains(completer.gotPrompt, MarkerSummaries) || strings.Contains(completer.gotPrompt, MarkerQuestion) {
		t.Errorf("unsubstituted markers in prompt: %q", completer.gotPrompt)
	}
	if completer.gotTemp != 0.7 {
		t.Errorf("temperature = %f, want 0.7", completer.gotTemp)
	}
}

func TestAskEmptyIndexIsNotAnError(t *testing.T) {
	completer := &mockCompleter{response: "I do not have information about that."}
	o := newOrchestrator(t, &mockEmbedder{}, &mockSearcher{}, completer, Options{})

	answer, err := o.Ask(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("Ask failed on empty index: %v", err)
	}
	if answer.Context != "" || answer.Sources != "" {
		t.Errorf("expected empty context and sources, got %q / %q", answer.Context, answer.Sources)
	}
	if answer.Answer == "" {
		t.Error("expected an answer even with no retrieved chunks")
	}
}

func TestAskCustomTemplateFallback(t *testing.T) {
	searcher := &mockSearcher{results: []index.Result{
		chunkResult("doc:1", "ctx", "a.pdf", "0"),
	}}
	completer := &mockCompleter{response: "answer"}

	// Custom template lacks the question marker.
	o := newOrchestrator(t, &mockEmbedder{}, searcher, completer, Options{
		Template: "Context: {summaries}\nReply briefly.",
	})

	answer, err := o.Ask(context.Background(), "why", nil)
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer.Warning == "" {
		t.Error("expected a warning when the custom template is invalid")
	}
	if !strings.Contains(completer.gotPrompt, "Please reply to the question using only the text above.") {
		t.Errorf("expected default template in prompt, got %q", completer.gotPrompt)
	}
	if strings.Contains(completer.gotPrompt, "Reply briefly.") {
		t.Errorf("invalid custom template leaked into prompt: %q", completer.gotPrompt)
	}
}

func TestAskValidCustomTemplate(t *testing.T) {
	searcher := &mockSearcher{results: []index.Result{
		chunkResult("doc:1", "ctx", "a.pdf", "0"),
	}}
	completer := &mockCompleter{response: "answer"}

	o := newOrchestrator(t, &mockEmbedder{}, searcher, completer, Options{
		Template: "Docs: {summaries}\nQ: {question}\nA:",
	})

	answer, err := o.Ask(context.Background(), "why", nil)
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer.Warning != "" {
		t.Errorf("unexpected warning for valid template: %q", answer.Warning)
	}
	if !strings.HasPrefix(completer.gotPrompt, "Docs: ctx") {
		t.Errorf("custom template not used: %q", completer.gotPrompt)
	}
}

func TestAskHistoryPassedThroughUnmodified(t *testing.T) {
	completer := &mockCompleter{response: "third answer"}
	o := newOrchestrator(t, &mockEmbedder{}, &mockSearcher{}, completer, Options{})

	history := []Turn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	}
	_, err := o.Ask(context.Background(), "q3", history)
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if len(completer.gotHistory) != 2 || completer.gotHistory[0].Question != "q1" {
		t.Errorf("history not passed through: %+v", completer.gotHistory)
	}
	if len(history) != 2 {
		t.Errorf("history mutated by Ask: %+v", history)
	}
}

func TestAskErrorTaxonomy(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		o := newOrchestrator(t, &mockEmbedder{err: fmt.Errorf("auth failed")}, &mockSearcher{}, &mockCompleter{}, Options{})
		_, err := o.Ask(context.Background(), "q", nil)
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("retrieval failure", func(t *testing.T) {
		o := newOrchestrator(t, &mockEmbedder{}, &mockSearcher{err: fmt.Errorf("connection reset")}, &mockCompleter{}, Options{})
		_, err := o.Ask(context.Background(), "q", nil)
		if !errors.Is(err, ErrRetrievalFailed) {
			t.Errorf("got %v, want ErrRetrievalFailed", err)
		}
	})

	t.Run("completion failure", func(t *testing.T) {
		o := newOrchestrator(t, &mockEmbedder{}, &mockSearcher{}, &mockCompleter{err: fmt.Errorf("503")}, Options{})
		_, err := o.Ask(context.Background(), "q", nil)
		if !errors.Is(err, ErrCompletionUnavailable) {
			t.Errorf("got %v, want ErrCompletionUnavailable", err)
		}
	})

	t.Run("cancellation passes through", func(t *testing.T) {
		o := newOrchestrator(t, &mockEmbedder{}, &mockSearcher{}, &mockCompleter{err: context.Canceled}, Options{})
		_, err := o.Ask(context.Background(), "q", nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
		if errors.Is(err, ErrCompletionUnavailable) {
			t.Error("cancellation should not be wrapped as ErrCompletionUnavailable")
		}
	})
}

func TestConversationHistoryInvariant(t *testing.T) {
	completer := &mockCompleter{response: "an answer"}
	o := newOrchestrator(t, &mockEmbedder{}, &mockSearcher{results: []index.Result{
		chunkResult("doc:1", "ctx", "a.pdf", "0"),
	}}, completer, Options{})

	var conv Conversation
	for i := 0; i < 3; i++ {
		answer, err := o.Ask(context.Background(), fmt.Sprintf("question %d", i), conv.Turns)
		if err != nil {
			t.Fatalf("Ask %d failed: %v", i, err)
		}
		conv.Append(answer.Question, answer.Answer, answer.Sources)
	}

	if len(conv.Turns) != 3 || len(conv.Sources) != 3 {
		t.Errorf("history invariant violated: %d turns, %d sources", len(conv.Turns), len(conv.Sources))
	}

	conv.Clear()
	if conv.Len() != 0 || len(conv.Sources) != 0 {
		t.Errorf("Clear left state behind: %+v", conv)
	}
}

func TestSourcesDeduplicated(t *testing.T) {
	searcher := &mockSearcher{results: []index.Result{
		chunkResult("doc:1", "c1", "a.pdf", "0"),
		chunkResult("doc:2", "c2", "a.pdf", "0"),
	}}
	o := newOrchestrator(t, &mockEmbedder{}, searcher, &mockCompleter{response: "x"}, Options{})

	answer, err := o.Ask(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer.Sources != "a.pdf [chunk 0]" {
		t.Errorf("sources = %q, want deduplicated single entry", answer.Sources)
	}
}

func TestValidateTemplate(t *testing.T) {
	if err := ValidateTemplate(DefaultTemplate); err != nil {
		t.Errorf("default template should validate, got %v", err)
	}
	if err := ValidateTemplate("{summaries} {question}"); err != nil {
		t.Errorf("minimal template should validate, got %v", err)
	}
	if err := ValidateTemplate("{summaries} only"); !errors.Is(err, ErrPromptValidation) {
		t.Errorf("got %v, want ErrPromptValidation", err)
	}
	if err := ValidateTemplate("{question} only"); !errors.Is(err, ErrPromptValidation) {
		t.Errorf("got %v, want ErrPromptValidation", err)
	}
}

func TestSummarize(t *testing.T) {
	completer := &mockCompleter{response: "a summary"}
	o := newOrchestrator(t, &mockEmbedder{}, &mockSearcher{}, completer, Options{Temperature: 0.7})

	got, err := o.Summarize(context.Background(), "long document text", StyleBullets)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "a summary" {
		t.Errorf("summary = %q", got)
	}
	if !strings.Contains(completer.gotPrompt, "bullet points") {
		t.Errorf("style instruction missing from prompt: %q", completer.gotPrompt)
	}
	if !strings.Contains(completer.gotPrompt, "long document text") {
		t.Errorf("document text missing from prompt: %q", completer.gotPrompt)
	}
	if completer.gotTemp != 0 {
		t.Errorf("summaries should run deterministic, temperature = %f", completer.gotTemp)
	}

	if _, err := o.Summarize(context.Background(), "text", "haiku"); err == nil {
		t.Error("expected error for unknown style")
	}
	if _, err := o.Summarize(context.Background(), "  ", StyleConcise); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestExtractConversation(t *testing.T) {
	completer := &mockCompleter{response: "Q: ...\nA: ..."}
	o := newOrchestrator(t, &mockEmbedder{}, &mockSearcher{}, completer, Options{})

	got, err := o.ExtractConversation(context.Background(), "support article text")
	if err != nil {
		t.Fatalf("ExtractConversation failed: %v", err)
	}
	if got == "" {
		t.Error("expected dialogue output")
	}
	if !strings.Contains(completer.gotPrompt, "dialogue of questions and answers") {
		t.Errorf("extraction instruction missing: %q", completer.gotPrompt)
	}
}

func TestCompleteAdHoc(t *testing.T) {
	completer := &mockCompleter{response: "done"}
	o := newOrchestrator(t, &mockEmbedder{}, &mockSearcher{}, completer, Options{Temperature: 0.3})

	got, err := o.Complete(context.Background(), "Classify this document.")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "done" {
		t.Errorf("result = %q", got)
	}
	if completer.gotTemp != 0.3 {
		t.Errorf("temperature = %f, want configured 0.3", completer.gotTemp)
	}

	if _, err := o.Complete(context.Background(), "   "); err == nil {
		t.Error("expected error for empty prompt")
	}
}
