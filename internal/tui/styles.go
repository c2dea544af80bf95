package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const accentBlue = "#4286F5"

var banner = []string{
	"  ██████╗  ██████╗  ██████╗███████╗ █████╗  ██████╗ ███████╗",
	"  ██╔══██╗██╔═══██╗██╔════╝██╔════╝██╔══██╗██╔════╝ ██╔════╝",
	"  ██║  ██║██║   ██║██║     ███████╗███████║██║  ███╗█████╗  ",
	"  ██║  ██║██║   ██║██║     ╚════██║██╔══██║██║   ██║██╔══╝  ",
	"  ██████╔╝╚██████╔╝╚██████╗███████║██║  ██║╚██████╔╝███████╗",
	"  ╚═════╝  ╚═════╝  ╚═════╝╚══════╝╚═╝  ╚═╝ ╚═════╝ ╚══════╝",
}

// Styles contains all lipgloss styles for the chat interface.
type Styles struct {
	Banner    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Sources   lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
	StatusBar lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentBlue)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Sources:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

// RenderBanner returns the ASCII art banner with a usage hint.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range banner {
		b.WriteString(s.Banner.Render(line))
		b.WriteString("\n")
	}
	b.WriteString(s.System.Render("  Ask questions about your indexed documents. /help lists commands."))
	b.WriteString("\n")
	return b.String()
}
