package ui

import (
	"strings"

	"chatterm/internal/message"

	"github.com/charmbracelet/lipgloss"
)

const (
	// EmptyStateText is shown when there are no messages and nothing pending.
	EmptyStateText = "Start a conversation by typing a message below."

	// LoadingText follows the messages while a reply is pending.
	LoadingText = "AI is thinking..."
)

// MessageList renders a conversation thread. It does not sort, filter or
// deduplicate: insertion order is display order.
type MessageList struct {
	Messages []message.Message
	Loading  bool
	// Spinner is the current spinner frame shown before LoadingText.
	Spinner string
	Width   int
}

// ShowsEmptyState reports whether the placeholder is displayed.
func (l MessageList) ShowsEmptyState() bool {
	return len(l.Messages) == 0 && !l.Loading
}

// Render renders the list with the given styles and markdown renderer.
func (l MessageList) Render(s Styles, md *MarkdownRenderer) string {
	if l.ShowsEmptyState() {
		return lipgloss.PlaceHorizontal(l.Width, lipgloss.Center, s.Placeholder.Render(EmptyStateText))
	}

	parts := make([]string, 0, len(l.Messages)+1)
	for _, msg := range l.Messages {
		parts = append(parts, RenderMessage(msg, l.Width, s, md))
	}

	if l.Loading {
		indicator := s.Muted.Render(LoadingText)
		if l.Spinner != "" {
			indicator = s.Spinner.Render(l.Spinner) + " " + indicator
		}
		parts = append(parts, indicator)
	}

	return strings.Join(parts, "\n\n")
}
