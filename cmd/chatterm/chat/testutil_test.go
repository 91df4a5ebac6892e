// Test utilities for the chat package: fakes for the real-time channel and
// the backend, a model builder, and helpers that drive Update the way the
// bubbletea runtime would.
package chat

import (
	"context"
	"sync"
	"time"

	"chatterm/cmd/chatterm/ui"
	"chatterm/internal/config"
	"chatterm/internal/message"
	"chatterm/internal/transport"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// FAKE REAL-TIME CHANNEL
// =============================================================================

type fakeChannel struct {
	mu      sync.Mutex
	state   transport.State
	events  chan transport.Event
	sent    []transport.OutboundFrame
	sendErr error
	started int
	closed  int
}

func newFakeChannel(state transport.State) *fakeChannel {
	return &fakeChannel{state: state, events: make(chan transport.Event, 16)}
}

func (f *fakeChannel) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return nil
}

func (f *fakeChannel) Events() <-chan transport.Event {
	return f.events
}

func (f *fakeChannel) Send(_ context.Context, frame transport.OutboundFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeChannel) State() transport.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.state = transport.StateClosed
	return nil
}

func (f *fakeChannel) setState(s transport.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

func (f *fakeChannel) lastSent() transport.OutboundFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return transport.OutboundFrame{}
	}
	return f.sent[len(f.sent)-1]
}

// =============================================================================
// FAKE BACKEND
// =============================================================================

type fakeBackend struct {
	mu           sync.Mutex
	chatResp     *transport.ChatResponse
	chatErr      error
	history      map[string][]message.Message
	historyErr   error
	chatCalls    []transport.ChatRequest
	historyCalls []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{history: make(map[string][]message.Message)}
}

func (b *fakeBackend) Chat(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chatCalls = append(b.chatCalls, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.chatErr != nil {
		return nil, b.chatErr
	}
	resp := *b.chatResp
	return &resp, nil
}

func (b *fakeBackend) History(_ context.Context, id string) ([]message.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.historyCalls = append(b.historyCalls, id)
	if b.historyErr != nil {
		return nil, b.historyErr
	}
	return append([]message.Message(nil), b.history[id]...), nil
}

func (b *fakeBackend) calls() (chat []transport.ChatRequest, history []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append(chat[:0:0], b.chatCalls...), append(history[:0:0], b.historyCalls...)
}

// =============================================================================
// TEST MODEL
// =============================================================================

// TestModelOption configures a test model.
type TestModelOption func(*Model)

// NewTestModel creates a sized model with no channel and no backend.
func NewTestModel(opts ...TestModelOption) Model {
	m := New(Options{
		Theme:     "light",
		Endpoints: config.Endpoints{Base: "http://localhost:8000"},
	})
	m.markdown = ui.NewMarkdownRenderer("notty")
	m.ready = true
	m.width = 100
	m.height = 40
	m.layout()

	for _, opt := range opts {
		opt(&m)
	}
	m.refresh()
	return m
}

// WithChannel attaches a fake real-time channel.
func WithChannel(ch *fakeChannel) TestModelOption {
	return func(m *Model) {
		m.channel = ch
		m.channelState = ch.State()
	}
}

// WithBackend attaches a fake backend.
func WithBackend(b *fakeBackend) TestModelOption {
	return func(m *Model) {
		m.backend = b
	}
}

// WithMessages seeds the conversation.
func WithMessages(msgs ...message.Message) TestModelOption {
	return func(m *Model) {
		m.messages = append(m.messages, msgs...)
	}
}

// WithLoading sets the loading state.
func WithLoading(loading bool) TestModelOption {
	return func(m *Model) {
		m.setLoading(loading)
	}
}

// =============================================================================
// DRIVING HELPERS
// =============================================================================

// collect runs cmd and flattens batches. Commands that block (such as the
// channel event wait) are abandoned after a short grace period.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// step applies msg and then feeds back every resulting delivery, reply and
// history message, as the runtime would.
func step(m Model, msg tea.Msg) Model {
	newModel, cmd := m.Update(msg)
	m = newModel.(Model)
	for _, out := range collect(cmd) {
		switch out.(type) {
		case ui.SendMsg, realtimeSentMsg, fallbackReplyMsg, historyLoadedMsg:
			m = step(m, out)
		}
	}
	return m
}

func frameEvent(f transport.InboundFrame) channelEventMsg {
	return channelEventMsg{event: transport.FrameEvent{Frame: f}}
}

func stateEvent(s transport.State) channelEventMsg {
	return channelEventMsg{event: transport.StateEvent{State: s}}
}
