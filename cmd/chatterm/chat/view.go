package chat

import (
	"fmt"

	"chatterm/cmd/chatterm/ui"
	"chatterm/internal/transport"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// VIEW RENDERING
// =============================================================================

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	parts := []string{m.renderHeader()}
	if m.err != "" {
		parts = append(parts, m.renderErrorBanner())
	}
	parts = append(parts,
		m.viewport.View(),
		m.input.View(),
		m.renderFooter(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// connectionStatus renders the real-time channel indicator.
func (m Model) connectionStatus() string {
	switch m.channelState {
	case transport.StateOpen:
		return m.styles.Success.Render("● live")
	case transport.StateConnecting:
		return m.styles.Warning.Render("○ connecting")
	case transport.StateReconnecting:
		return m.styles.Warning.Render(fmt.Sprintf("↻ reconnecting (attempt %d)", m.reconnectAttempt))
	default:
		return m.styles.Muted.Render("○ offline · using HTTP")
	}
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render(" chatterm ")

	var status string
	if m.loading {
		status = lipgloss.JoinHorizontal(lipgloss.Center, m.spinner.View(), " ", m.styles.Badge.Render("Thinking..."))
	} else {
		status = m.styles.Success.Render("Ready")
	}

	headerLine := lipgloss.JoinHorizontal(
		lipgloss.Center,
		title,
		"  ",
		m.connectionStatus(),
		"  ",
		status,
	)

	info := m.endpoints.Base
	if m.conversationID != "" {
		info = fmt.Sprintf("%s · conversation %s", info, m.conversationID)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerLine,
		m.styles.Muted.Render(" "+info),
		m.styles.RenderDivider(m.width),
	)
}

func (m Model) renderErrorBanner() string {
	width := m.width - 2
	if width < 10 {
		width = 10
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.Destructive).
		Foreground(ui.Destructive).
		Padding(0, 1).
		Width(width).
		Render(m.err)
}

func (m Model) renderFooter() string {
	hotkeys := "Enter: send | Alt+Enter: newline | PgUp/PgDn: scroll | Esc: quit"
	if m.loading {
		hotkeys = "Waiting for reply | PgUp/PgDn: scroll | Esc: quit"
	}
	return m.styles.Footer.Render(fmt.Sprintf("%d messages | %s", len(m.messages), hotkeys))
}
