package chat

import (
	"context"
	"errors"
	"time"

	"chatterm/cmd/chatterm/ui"
	"chatterm/internal/config"
	"chatterm/internal/logging"
	"chatterm/internal/message"
	"chatterm/internal/transport"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// USER SEND
// =============================================================================

// handleSend appends the user message immediately, then delivers it over the
// real-time channel when open and over the fallback request otherwise.
func (m Model) handleSend(text string) (tea.Model, tea.Cmd) {
	m.messages = append(m.messages, message.New(message.RoleUser, text))
	m.setLoading(true)
	m.setError("")
	m.refresh()

	frame := transport.NewOutboundFrame(text, m.conversationID, message.NewID())

	if m.channelOpen() {
		m.track(frame.RequestID, channelRealtime)
		return m, tea.Batch(m.spinner.Tick, m.sendRealtime(frame))
	}
	m.track(frame.RequestID, channelFallback)
	return m, tea.Batch(m.spinner.Tick, m.sendFallback(frame))
}

func (m Model) channelOpen() bool {
	return m.channel != nil && m.channel.State() == transport.StateOpen
}

func (m *Model) track(requestID, channel string) {
	m.prune()
	m.requests[requestID] = &exchange{channel: channel, sent: time.Now()}
	m.order = append(m.order, requestID)
}

// resolvedWindow is how many answered requests are remembered for duplicate
// detection.
const resolvedWindow = 32

// prune forgets the oldest answered requests beyond resolvedWindow. Only
// the answered prefix of order is dropped, so send order is kept for
// requests still waiting.
func (m *Model) prune() {
	resolved := 0
	for _, id := range m.order {
		if ex := m.requests[id]; ex != nil && !ex.resolved {
			break
		}
		resolved++
	}
	drop := resolved - resolvedWindow
	if drop <= 0 {
		return
	}
	for _, id := range m.order[:drop] {
		delete(m.requests, id)
	}
	m.order = append(m.order[:0:0], m.order[drop:]...)
}

// awaiting reports whether any request sent on channel is still unanswered.
// An empty channel matches every request.
func (m Model) awaiting(channel string) bool {
	for _, id := range m.order {
		ex := m.requests[id]
		if ex == nil || ex.resolved {
			continue
		}
		if channel == "" || ex.channel == channel {
			return true
		}
	}
	return false
}

func (m Model) sendRealtime(frame transport.OutboundFrame) tea.Cmd {
	ch := m.channel
	ctx := m.shutdownCtx
	return func() tea.Msg {
		return realtimeSentMsg{frame: frame, err: ch.Send(ctx, frame)}
	}
}

func (m Model) sendFallback(frame transport.OutboundFrame) tea.Cmd {
	backend := m.backend
	ctx := m.shutdownCtx
	return func() tea.Msg {
		if backend == nil {
			return fallbackReplyMsg{requestID: frame.RequestID, err: errors.New("no fallback backend configured")}
		}
		start := time.Now()
		resp, err := backend.Chat(ctx, frame)
		return fallbackReplyMsg{requestID: frame.RequestID, resp: resp, err: err, elapsed: time.Since(start)}
	}
}

// handleRealtimeSent falls through to the fallback request when the real-time
// write failed, for example because the channel dropped after the open check.
func (m Model) handleRealtimeSent(msg realtimeSentMsg) (tea.Model, tea.Cmd) {
	reqID := msg.frame.RequestID
	if msg.err == nil {
		logging.AuditWithConversation(m.conversationID).Sent(channelRealtime, reqID)
		return m, nil
	}

	logging.ChatError("realtime send failed, using fallback (req=%s): %v", reqID, msg.err)
	logging.AuditWithConversation(m.conversationID).Failed(channelRealtime, reqID, msg.err)
	if ex, ok := m.requests[reqID]; ok {
		ex.channel = channelFallback
	}
	return m, m.sendFallback(msg.frame)
}

// handleFallbackReply applies a fallback result. Loading is cleared afterwards
// when the real-time channel is not open or no real-time reply is awaited.
func (m Model) handleFallbackReply(msg fallbackReplyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	audit := logging.AuditWithConversation(m.conversationID)

	switch {
	case msg.err != nil:
		if errors.Is(msg.err, context.Canceled) && m.shutdownCtx.Err() != nil {
			return m, nil
		}
		logging.ChatError("fallback request failed (req=%s): %v", msg.requestID, msg.err)
		audit.Failed(channelFallback, msg.requestID, msg.err)
		m.resolve(msg.requestID)
		m.setError(errSendFailed)

	case msg.resp != nil:
		if !m.resolve(msg.requestID) {
			logging.ChatDebug("dropping duplicate fallback reply (req=%s)", msg.requestID)
			break
		}
		audit.Reply(channelFallback, msg.requestID, msg.elapsed)
		m.messages = append(m.messages, message.New(message.RoleAssistant, msg.resp.Response))
		cmd = m.observeConversation(msg.resp.ConversationID)
		m.refresh()
	}

	if !m.channelOpen() || !m.awaiting(channelRealtime) {
		m.setLoading(false)
		m.refresh()
	}
	return m, cmd
}

// resolve marks a request answered. It returns false if the request was
// already answered, so the caller can drop the duplicate. Unknown ids are
// accepted.
func (m *Model) resolve(requestID string) bool {
	ex, ok := m.requests[requestID]
	if !ok {
		return true
	}
	if ex.resolved {
		return false
	}
	ex.resolved = true
	return true
}

// resolveOldest answers the oldest unanswered request sent on channel.
func (m *Model) resolveOldest(channel string) (string, *exchange) {
	for _, id := range m.order {
		if ex := m.requests[id]; ex != nil && !ex.resolved && ex.channel == channel {
			ex.resolved = true
			return id, ex
		}
	}
	return "", nil
}

// =============================================================================
// REAL-TIME CHANNEL EVENTS
// =============================================================================

// waitForChannelEvent blocks on the channel's event stream. Update re-issues
// it after every event.
func waitForChannelEvent(events <-chan transport.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return channelClosedMsg{}
		}
		return channelEventMsg{event: ev}
	}
}

func (m *Model) handleChannelEvent(ev transport.Event) tea.Cmd {
	switch ev := ev.(type) {
	case transport.StateEvent:
		m.handleStateChange(ev)

	case transport.ErrorEvent:
		// Loading and the channel itself are left alone.
		logging.TransportWarn("realtime channel error: %v", ev.Err)
		m.setError(errConnection)

	case transport.FrameEvent:
		return m.handleFrame(ev.Frame)
	}
	return nil
}

func (m *Model) handleStateChange(ev transport.StateEvent) {
	prev := m.channelState
	m.channelState = ev.State
	if ev.State == transport.StateReconnecting {
		m.reconnectAttempt = ev.Attempt
	}
	if ev.State == transport.StateOpen {
		m.reconnectAttempt = 0
	}

	// Replies to frames written on a dropped connection never arrive.
	if prev == transport.StateOpen && ev.State != transport.StateOpen {
		lost := 0
		for {
			if id, _ := m.resolveOldest(channelRealtime); id == "" {
				break
			}
			lost++
		}
		if lost > 0 {
			logging.ChatError("realtime channel dropped with %d unanswered message(s)", lost)
		}
		if m.loading && !m.awaiting("") {
			m.setLoading(false)
			m.renderContent()
		}
	}
}

// handleFrame applies an inbound frame. Only frames with a response append
// an assistant message; error frames set the banner. Both end the wait.
func (m *Model) handleFrame(f transport.InboundFrame) tea.Cmd {
	if !f.HasReply() && !f.IsError() {
		return nil
	}

	reqID := f.RequestID
	var ex *exchange
	if reqID != "" {
		if !m.resolve(reqID) {
			logging.ChatDebug("dropping duplicate realtime reply (req=%s)", reqID)
			return nil
		}
		ex = m.requests[reqID]
	} else {
		reqID, ex = m.resolveOldest(channelRealtime)
	}

	audit := logging.AuditWithConversation(m.conversationID)

	if f.IsError() {
		logging.ChatError("backend error frame: %s", f.Error)
		audit.Failed(channelRealtime, reqID, errors.New(f.Error))
		m.setError(f.Error)
		m.setLoading(false)
		m.refresh()
		return nil
	}

	var elapsed time.Duration
	if ex != nil {
		elapsed = time.Since(ex.sent)
	}
	audit.Reply(channelRealtime, reqID, elapsed)

	m.messages = append(m.messages, message.New(message.RoleAssistant, f.Response))
	cmd := m.observeConversation(f.ConversationID)
	m.setLoading(false)
	m.refresh()
	return cmd
}

// =============================================================================
// CONVERSATION HISTORY
// =============================================================================

// observeConversation records a backend-supplied conversation id and fetches
// its history the first time the id is seen.
func (m *Model) observeConversation(id string) tea.Cmd {
	if id == "" {
		return nil
	}
	if id != m.conversationID {
		logging.Chat("conversation id: %s", id)
	}
	m.conversationID = id

	if m.historyFetched[id] {
		return nil
	}
	m.historyFetched[id] = true
	return m.fetchHistory(id)
}

func (m Model) fetchHistory(id string) tea.Cmd {
	backend := m.backend
	ctx := m.shutdownCtx
	if backend == nil {
		return nil
	}
	return func() tea.Msg {
		start := time.Now()
		msgs, err := backend.History(ctx, id)
		return historyLoadedMsg{conversationID: id, messages: msgs, err: err, elapsed: time.Since(start)}
	}
}

// handleHistoryLoaded merges fetched history into the local list so that
// messages the backend has not stored yet are kept.
func (m Model) handleHistoryLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	audit := logging.AuditWithConversation(msg.conversationID)

	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) && m.shutdownCtx.Err() != nil {
			return m, nil
		}
		logging.ChatError("history fetch failed (conversation=%s): %v", msg.conversationID, msg.err)
		audit.HistoryFetched(0, msg.elapsed, msg.err)
		m.setError(errHistoryLoad)
		return m, nil
	}
	audit.HistoryFetched(len(msg.messages), msg.elapsed, nil)

	if msg.conversationID != m.conversationID {
		logging.ChatDebug("ignoring history for superseded conversation %s", msg.conversationID)
		return m, nil
	}

	m.messages = message.FillIDs(message.Merge(m.messages, msg.messages))
	m.refresh()
	return m, nil
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	theme := m.styles.Theme
	m.styles = ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))
	m.spinner.Style = m.styles.Spinner
	m.input.SetStyles(m.styles)
	if theme.IsDark != m.styles.Theme.IsDark {
		m.markdown = ui.NewMarkdownRenderer(m.styles.Theme.GlamourStyle())
	}
	m.wordWrap = cfg.UI.WordWrap

	if ep, err := cfg.Endpoints(); err == nil && (ep.Base != m.endpoints.Base || ep.Realtime != m.endpoints.Realtime) {
		logging.ConfigWarn("backend endpoints changed; restart chatterm to apply")
	}

	m.layout()
	m.refresh()
}
