package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	inputPlaceholder         = "Type your message here... (Enter to send, Alt+Enter for newline)"
	inputDisabledPlaceholder = "Waiting for a reply..."
)

// SendMsg is emitted when the user submits a non-blank message. Text is the
// buffer exactly as typed.
type SendMsg struct {
	Text string
}

// Input is the message input box.
type Input struct {
	textarea textarea.Model
	disabled bool
	styles   Styles
}

// NewInput creates a focused input.
func NewInput(s Styles) Input {
	ta := textarea.New()
	ta.Placeholder = inputPlaceholder
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.SetWidth(80)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	return Input{textarea: ta, styles: s}
}

// Value returns the buffer contents.
func (in Input) Value() string {
	return in.textarea.Value()
}

// SetValue replaces the buffer contents.
func (in *Input) SetValue(s string) {
	in.textarea.SetValue(s)
}

// Disabled reports whether submission is blocked.
func (in Input) Disabled() bool {
	return in.disabled
}

// SetDisabled blocks or unblocks the input. While disabled, Enter is inert
// and keystrokes are ignored; the buffer is kept.
func (in *Input) SetDisabled(disabled bool) {
	in.disabled = disabled
	if disabled {
		in.textarea.Placeholder = inputDisabledPlaceholder
	} else {
		in.textarea.Placeholder = inputPlaceholder
	}
}

// SetWidth sets the outer width including the border.
func (in *Input) SetWidth(w int) {
	inner := w - in.styles.InputBox.GetHorizontalFrameSize()
	if inner < 10 {
		inner = 10
	}
	in.textarea.SetWidth(inner)
}

// Height returns the rendered height including the border.
func (in Input) Height() int {
	return in.textarea.Height() + in.styles.InputBox.GetVerticalFrameSize()
}

// SetStyles applies a new theme.
func (in *Input) SetStyles(s Styles) {
	in.styles = s
}

// Submit emits SendMsg and clears the buffer if the trimmed buffer is
// non-empty and the input is enabled. Otherwise it does nothing.
func (in Input) Submit() (Input, tea.Cmd) {
	text := in.textarea.Value()
	if in.disabled || strings.TrimSpace(text) == "" {
		return in, nil
	}
	in.textarea.Reset()
	return in, func() tea.Msg {
		return SendMsg{Text: text}
	}
}

// Init returns the cursor blink command.
func (in Input) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles key input.
func (in Input) Update(msg tea.Msg) (Input, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if in.disabled {
			return in, nil
		}
		// Bracketed paste inserts newlines rather than submitting.
		if keyMsg.Type == tea.KeyEnter && !keyMsg.Alt && !keyMsg.Paste {
			return in.Submit()
		}
	}

	var cmd tea.Cmd
	in.textarea, cmd = in.textarea.Update(msg)
	return in, cmd
}

// View renders the bordered input.
func (in Input) View() string {
	box := in.styles.InputBox
	if in.disabled {
		box = in.styles.InputBoxDisabled
	}
	return box.Render(in.textarea.View())
}
