// Package tui provides the Bubble Tea chat interface: questions go to the
// orchestrator, answers come back with the documents they were grounded on,
// and the conversation history feeds every following question.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/docsage/docsage/internal/rag"
)

// State represents the TUI state machine.
type State int

// TUI states.
const (
	StateInput    State = iota // Awaiting user input
	StateThinking              // Waiting on the orchestrator
)

const (
	// maxMessages bounds the display transcript.
	maxMessages = 200

	// askTimeout is the maximum time for a single question.
	askTimeout = 5 * time.Minute

	// minViewport is the minimum viewport height.
	minViewport = 3

	// fixedLines are the input, separators, and status bar rows.
	fixedLines = 4
)

// Message role constants for display.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleSystem    = "system"
	roleError     = "error"
)

// Message is one transcript entry.
type Message struct {
	Role    string
	Text    string
	Sources string
}

// Asker answers questions with conversation history as prior turns.
type Asker interface {
	Ask(ctx context.Context, question string, history []rag.Turn) (*rag.Answer, error)
}

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	asker        Asker
	conversation *rag.Conversation

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	state     State
	messages  []Message
	askCancel context.CancelFunc

	ctx    context.Context
	width  int
	height int

	styles   Styles
	markdown *markdownRenderer
}

type answerMsg struct {
	answer *rag.Answer
}

type errorMsg struct {
	err error
}

// New creates a chat model. ctx should be the same context passed to
// tea.WithContext so cancellation behaves consistently.
func New(ctx context.Context, asker Asker) (*Model, error) {
	if asker == nil {
		return nil, errors.New("tui.New: asker is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}

	ta := textarea.New()
	ta.Placeholder = "Ask about your documents..."
	ta.SetHeight(1)
	ta.SetWidth(120)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)

	return &Model{
		asker:        asker,
		conversation: &rag.Conversation{},
		input:        ta,
		viewport:     vp,
		spinner:      sp,
		ctx:          ctx,
		width:        80,
		styles:       DefaultStyles(),
		markdown:     newMarkdownRenderer(80),
	}, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := msg.Height - m.input.Height() - fixedLines
		if vpHeight < minViewport {
			vpHeight = minViewport
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
		m.input.SetWidth(msg.Width - 4)
		m.markdown.UpdateWidth(msg.Width)
		m.rebuildViewportContent()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == StateThinking {
			m.rebuildViewportContent()
		}
		return m, cmd

	case answerMsg:
		m.state = StateInput
		m.clearAskCancel()

		m.conversation.Append(msg.answer.Question, msg.answer.Answer, msg.answer.Sources)
		if msg.answer.Warning != "" {
			m.addMessage(Message{Role: roleSystem, Text: msg.answer.Warning})
		}
		m.addMessage(Message{
			Role:    roleAssistant,
			Text:    msg.answer.Answer,
			Sources: msg.answer.Sources,
		})
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, m.input.Focus()

	case errorMsg:
		m.state = StateInput
		m.clearAskCancel()

		switch {
		case errors.Is(msg.err, context.Canceled):
			m.addMessage(Message{Role: roleSystem, Text: "(cancelled)"})
		case errors.Is(msg.err, context.DeadlineExceeded):
			m.addMessage(Message{Role: roleError, Text: "question timed out"})
		default:
			m.addMessage(Message{Role: roleError, Text: msg.err.Error()})
		}
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD:
		m.cancelAsk()
		return m, tea.Quit

	case tea.KeyEsc:
		if m.state == StateThinking {
			m.cancelAsk()
			return m, nil
		}

	case tea.KeyEnter:
		if m.state != StateInput {
			return m, nil
		}
		question := strings.TrimSpace(m.input.Value())
		if question == "" {
			return m, nil
		}
		m.input.Reset()

		if cmd, handled := m.handleCommand(question); handled {
			return m, cmd
		}

		m.addMessage(Message{Role: roleUser, Text: question})
		m.state = StateThinking
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, tea.Batch(m.startAsk(question), m.spinner.Tick)

	case tea.KeyPgUp:
		m.viewport.PageUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.PageDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleCommand processes slash commands; reports whether input was one.
func (m *Model) handleCommand(input string) (tea.Cmd, bool) {
	switch input {
	case "/quit", "/exit":
		return tea.Quit, true

	case "/clear":
		m.conversation.Clear()
		m.messages = nil
		m.addMessage(Message{Role: roleSystem, Text: "conversation cleared"})
		m.rebuildViewportContent()
		return nil, true

	case "/sources":
		text := "no sources yet"
		if n := m.conversation.Len(); n > 0 {
			if s := m.conversation.Sources[n-1]; s != "" {
				text = s
			} else {
				text = "last answer had no sources"
			}
		}
		m.addMessage(Message{Role: roleSystem, Text: text})
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return nil, true

	case "/help":
		m.addMessage(Message{Role: roleSystem,
			Text: "/clear resets the conversation, /sources shows the last answer's documents, /quit exits"})
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return nil, true
	}
	return nil, false
}

// startAsk runs the question against the orchestrator off the event loop.
func (m *Model) startAsk(question string) tea.Cmd {
	ctx, cancel := context.WithTimeout(m.ctx, askTimeout)
	m.askCancel = cancel
	history := m.conversation.Turns

	return func() tea.Msg {
		answer, err := m.asker.Ask(ctx, question, history)
		if err != nil {
			return errorMsg{err: err}
		}
		return answerMsg{answer: answer}
	}
}

func (m *Model) cancelAsk() {
	if m.askCancel != nil {
		m.askCancel()
	}
}

func (m *Model) clearAskCancel() {
	if m.askCancel != nil {
		m.askCancel()
		m.askCancel = nil
	}
}

// addMessage appends a transcript entry and enforces maxMessages.
func (m *Model) addMessage(msg Message) {
	m.messages = append(m.messages, msg)
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())
	b.WriteString("\n")
	b.WriteString(m.styles.Prompt.Render("> "))
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	return b.String()
}

// rebuildViewportContent reconstructs the transcript shown in the viewport.
func (m *Model) rebuildViewportContent() {
	var b strings.Builder

	b.WriteString(m.styles.RenderBanner())
	b.WriteString("\n")

	for _, msg := range m.messages {
		switch msg.Role {
		case roleUser:
			b.WriteString(m.styles.User.Render("You> "))
			b.WriteString(msg.Text)
		case roleAssistant:
			b.WriteString(m.styles.Assistant.Render("Sage> "))
			b.WriteString(m.markdown.Render(msg.Text))
			if msg.Sources != "" {
				b.WriteString("\n")
				b.WriteString(m.styles.Sources.Render("sources: " + msg.Sources))
			}
		case roleSystem:
			b.WriteString(m.styles.System.Render(msg.Text))
		case roleError:
			b.WriteString(m.styles.Error.Render("Error: " + msg.Text))
		}
		b.WriteString("\n\n")
	}

	if m.state == StateThinking {
		b.WriteString(m.spinner.View())
		b.WriteString(" Thinking...\n\n")
	}

	m.viewport.SetContent(b.String())
}

func (m *Model) renderSeparator() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	return m.styles.Separator.Render(strings.Repeat("─", width))
}

func (m *Model) renderStatusBar() string {
	turns := m.conversation.Len()
	status := fmt.Sprintf(" %d turn(s)  •  enter: ask  •  /help  •  ctrl+c: quit", turns)
	if m.state == StateThinking {
		status = " thinking  •  esc: cancel  •  ctrl+c: quit"
	}
	return m.styles.StatusBar.Render(status)
}

// Run starts the chat interface and blocks until the user exits.
func Run(ctx context.Context, asker Asker) error {
	model, err := New(ctx, asker)
	if err != nil {
		return err
	}

	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("chat interface failed: %w", err)
	}
	return nil
}
