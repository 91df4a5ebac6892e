package chat

import (
	"context"
	"sync"

	"chatterm/cmd/chatterm/ui"
	"chatterm/internal/logging"
	"chatterm/internal/message"
	"chatterm/internal/transport"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// New creates the chat view. Nothing is dialed until Init.
func New(opts Options) Model {
	styles := ui.NewStyles(ui.ThemeFor(opts.Theme))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		input:          ui.NewInput(styles),
		viewport:       viewport.New(80, 20),
		spinner:        sp,
		styles:         styles,
		markdown:       ui.NewMarkdownRenderer(styles.Theme.GlamourStyle()),
		width:          80,
		height:         24,
		wordWrap:       opts.WordWrap,
		messages:       []message.Message{},
		channel:        opts.Channel,
		channelState:   transport.StateConnecting,
		backend:        opts.Backend,
		endpoints:      opts.Endpoints,
		requests:       make(map[string]*exchange),
		historyFetched: make(map[string]bool),
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
		shutdownOnce:   &sync.Once{},
	}
	if m.channel == nil {
		m.channelState = transport.StateClosed
	}
	m.layout()
	m.renderContent()
	return m
}

// Init opens the real-time channel and starts listening for its events.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.input.Init()}

	if m.channel != nil {
		if err := m.channel.Start(m.shutdownCtx); err != nil {
			logging.TransportError("failed to start realtime channel: %v", err)
		} else {
			cmds = append(cmds, waitForChannelEvent(m.channel.Events()))
		}
	}
	logging.Chat("chat view mounted (base=%s)", m.endpoints.Base)
	return tea.Batch(cmds...)
}

// Update routes every event; it is the only place conversation state changes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case ui.SendMsg:
		return m.handleSend(msg.Text)

	case channelEventMsg:
		cmd := m.handleChannelEvent(msg.event)
		return m, tea.Batch(cmd, waitForChannelEvent(m.channel.Events()))

	case channelClosedMsg:
		if m.channel != nil {
			m.channelState = m.channel.State()
		}
		logging.ChatDebug("realtime event stream ended (state=%s)", m.channelState)
		return m, nil

	case realtimeSentMsg:
		return m.handleRealtimeSent(msg)

	case fallbackReplyMsg:
		return m.handleFallbackReply(msg)

	case historyLoadedMsg:
		return m.handleHistoryLoaded(msg)

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.renderContent()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.Shutdown()
		m.quitting = true
		return m, tea.Quit

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Shutdown releases the real-time channel and cancels in-flight requests.
// It runs at most once and surfaces no error.
func (m Model) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.shutdownCancel()
		if m.channel != nil {
			if err := m.channel.Close(); err != nil {
				logging.TransportWarn("error closing realtime channel: %v", err)
			}
		}
		logging.Chat("chat view unmounted")
	})
}

// layout sizes the viewport and input to the window.
func (m *Model) layout() {
	w := m.width
	if w < 20 {
		w = 20
	}
	m.input.SetWidth(w)

	h := m.height - lipgloss.Height(m.renderHeader()) - m.input.Height() - lipgloss.Height(m.renderFooter())
	if m.err != "" {
		h -= lipgloss.Height(m.renderErrorBanner())
	}
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
}

// contentWidth is the width messages are laid out in.
func (m Model) contentWidth() int {
	w := m.viewport.Width - m.styles.Content.GetHorizontalFrameSize()
	if m.wordWrap > 0 && w > m.wordWrap {
		w = m.wordWrap
	}
	return w
}

// renderContent rebuilds the viewport content without moving it.
func (m *Model) renderContent() {
	list := ui.MessageList{
		Messages: m.messages,
		Loading:  m.loading,
		Width:    m.contentWidth(),
	}
	if m.loading {
		list.Spinner = m.spinner.View()
	}
	m.viewport.SetContent(m.styles.Content.Render(list.Render(m.styles, m.markdown)))
}

// refresh re-renders and scrolls to the newest entry. Called after every
// change to the message list.
func (m *Model) refresh() {
	m.renderContent()
	m.viewport.GotoBottom()
}

// setLoading updates loading and the input's disabled state together.
func (m *Model) setLoading(loading bool) {
	m.loading = loading
	m.input.SetDisabled(loading)
}

// setError replaces the banner. An empty string clears it.
func (m *Model) setError(s string) {
	changed := (m.err == "") != (s == "")
	m.err = s
	if changed {
		m.layout()
	}
}

// Messages returns the conversation in display order.
func (m Model) Messages() []message.Message {
	return m.messages
}

// Loading reports whether a reply is pending.
func (m Model) Loading() bool {
	return m.loading
}

// ConversationID returns the backend-assigned conversation id, if any.
func (m Model) ConversationID() string {
	return m.conversationID
}

// Err returns the current error banner text.
func (m Model) Err() string {
	return m.err
}

// ChannelState returns the last observed real-time channel state.
func (m Model) ChannelState() transport.State {
	return m.channelState
}
