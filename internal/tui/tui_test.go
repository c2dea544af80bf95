package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/docsage/docsage/internal/rag"
)

type stubAsker struct {
	gotQuestion string
	gotHistory  []rag.Turn
	err         error
}

func (s *stubAsker) Ask(_ context.Context, question string, history []rag.Turn) (*rag.Answer, error) {
	s.gotQuestion = question
	s.gotHistory = history
	if s.err != nil {
		return nil, s.err
	}
	return &rag.Answer{
		Question: question,
		Answer:   "answer to " + question,
		Sources:  "policy.pdf [chunk 0]",
	}, nil
}

func newTestModel(t *testing.T, asker Asker) *Model {
	t.Helper()
	m, err := New(context.Background(), asker)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

// submit types the question into the model and presses enter, then runs the
// resulting ask command synchronously and feeds its message back.
func submit(t *testing.T, m *Model, question string) {
	t.Helper()

	m.input.SetValue(question)
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if model != tea.Model(m) {
		t.Fatal("Update() should return the same model")
	}
	if m.state != StateThinking {
		t.Fatalf("state after enter = %v, want StateThinking", m.state)
	}
	if cmd == nil {
		t.Fatal("enter should produce a command")
	}

	msg := m.startAsk(question)()
	m.Update(msg)
}

func TestAskFlow(t *testing.T) {
	asker := &stubAsker{}
	m := newTestModel(t, asker)

	submit(t, m, "How many vacation days?")

	if m.state != StateInput {
		t.Errorf("state = %v, want StateInput", m.state)
	}
	if asker.gotQuestion != "How many vacation days?" {
		t.Errorf("asker question = %q", asker.gotQuestion)
	}
	if got := m.conversation.Len(); got != 1 {
		t.Fatalf("conversation.Len() = %d, want 1", got)
	}
	if m.conversation.Sources[0] != "policy.pdf [chunk 0]" {
		t.Errorf("sources[0] = %q", m.conversation.Sources[0])
	}

	last := m.messages[len(m.messages)-1]
	if last.Role != roleAssistant {
		t.Errorf("last message role = %q", last.Role)
	}
	if !strings.Contains(last.Text, "answer to") {
		t.Errorf("last message text = %q", last.Text)
	}
}

func TestHistoryFlowsIntoNextQuestion(t *testing.T) {
	asker := &stubAsker{}
	m := newTestModel(t, asker)

	submit(t, m, "first")
	submit(t, m, "second")

	if len(asker.gotHistory) != 1 {
		t.Fatalf("history for second question has %d turns, want 1", len(asker.gotHistory))
	}
	if asker.gotHistory[0].Question != "first" {
		t.Errorf("history[0].Question = %q", asker.gotHistory[0].Question)
	}
	if m.conversation.Len() != 2 {
		t.Errorf("conversation.Len() = %d, want 2", m.conversation.Len())
	}
}

func TestAskError(t *testing.T) {
	asker := &stubAsker{err: errors.New("completion service unavailable")}
	m := newTestModel(t, asker)

	submit(t, m, "q")

	if m.state != StateInput {
		t.Errorf("state = %v, want StateInput", m.state)
	}
	if m.conversation.Len() != 0 {
		t.Errorf("failed ask must not grow the conversation, Len() = %d", m.conversation.Len())
	}
	last := m.messages[len(m.messages)-1]
	if last.Role != roleError {
		t.Errorf("last message role = %q, want error", last.Role)
	}
}

func TestAskCancelled(t *testing.T) {
	asker := &stubAsker{err: context.Canceled}
	m := newTestModel(t, asker)

	submit(t, m, "q")

	last := m.messages[len(m.messages)-1]
	if last.Role != roleSystem {
		t.Errorf("last message role = %q, want system", last.Role)
	}
	if !strings.Contains(last.Text, "cancelled") {
		t.Errorf("last message text = %q", last.Text)
	}
}

func TestClearCommand(t *testing.T) {
	m := newTestModel(t, &stubAsker{})

	submit(t, m, "q")
	if m.conversation.Len() != 1 {
		t.Fatalf("conversation.Len() = %d", m.conversation.Len())
	}

	m.input.SetValue("/clear")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.conversation.Len() != 0 {
		t.Errorf("conversation.Len() after /clear = %d, want 0", m.conversation.Len())
	}
	if len(m.messages) != 1 || m.messages[0].Role != roleSystem {
		t.Errorf("transcript after /clear = %+v", m.messages)
	}
}

func TestSourcesCommand(t *testing.T) {
	m := newTestModel(t, &stubAsker{})

	m.input.SetValue("/sources")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	last := m.messages[len(m.messages)-1]
	if last.Text != "no sources yet" {
		t.Errorf("sources before any answer = %q", last.Text)
	}

	submit(t, m, "q")

	m.input.SetValue("/sources")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	last = m.messages[len(m.messages)-1]
	if last.Text != "policy.pdf [chunk 0]" {
		t.Errorf("sources after answer = %q", last.Text)
	}
}

func TestQuitCommand(t *testing.T) {
	m := newTestModel(t, &stubAsker{})

	m.input.SetValue("/quit")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("/quit should produce a command")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Errorf("cmd() = %v, want tea.QuitMsg", msg)
	}
}

func TestEmptyInputIgnored(t *testing.T) {
	m := newTestModel(t, &stubAsker{})

	m.input.SetValue("   ")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.state != StateInput {
		t.Errorf("state = %v, want StateInput", m.state)
	}
	if len(m.messages) != 0 {
		t.Errorf("messages = %+v, want none", m.messages)
	}
}

func TestTranscriptBounded(t *testing.T) {
	m := newTestModel(t, &stubAsker{})

	for range maxMessages + 10 {
		m.addMessage(Message{Role: roleSystem, Text: "x"})
	}
	if len(m.messages) != maxMessages {
		t.Errorf("len(messages) = %d, want %d", len(m.messages), maxMessages)
	}
}

func TestViewRenders(t *testing.T) {
	m := newTestModel(t, &stubAsker{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	view := m.View()
	if view == "" {
		t.Error("View() returned empty string")
	}
	if !strings.Contains(view, ">") {
		t.Error("View() missing input prompt")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(context.Background(), nil); err == nil {
		t.Error("New() with nil asker should fail")
	}
	if _, err := New(nil, &stubAsker{}); err == nil { //nolint:staticcheck // validating nil ctx handling
		t.Error("New() with nil ctx should fail")
	}
}
