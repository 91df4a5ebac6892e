// Package chat provides the interactive chat view: the conversation state,
// the real-time channel lifecycle and real-time-first delivery with an HTTP
// fallback.
package chat

import (
	"context"
	"sync"
	"time"

	"chatterm/cmd/chatterm/ui"
	"chatterm/internal/config"
	"chatterm/internal/message"
	"chatterm/internal/transport"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
)

// User-visible error strings. Every failure collapses to one of these and
// the newest replaces the previous one.
const (
	errConnection  = "WebSocket connection error"
	errSendFailed  = "Failed to send message"
	errHistoryLoad = "Failed to load conversation history"
)

// Delivery channels, as recorded in the audit log.
const (
	channelRealtime = "realtime"
	channelFallback = "fallback"
)

// RealtimeChannel is the push channel to the backend.
// *transport.Realtime implements it.
type RealtimeChannel interface {
	Start(ctx context.Context) error
	Events() <-chan transport.Event
	Send(ctx context.Context, f transport.OutboundFrame) error
	State() transport.State
	Close() error
}

// Backend performs the request/response calls.
// *transport.Client implements it.
type Backend interface {
	Chat(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error)
	History(ctx context.Context, conversationID string) ([]message.Message, error)
}

// Options configures a Model.
type Options struct {
	Channel   RealtimeChannel
	Backend   Backend
	Endpoints config.Endpoints
	Theme     string
	// WordWrap caps the message width; 0 uses the full window.
	WordWrap int
}

// exchange tracks one user send until its reply (or failure) is observed.
type exchange struct {
	channel  string
	sent     time.Time
	resolved bool
}

// Model is the chat view.
type Model struct {
	// UI components
	input    ui.Input
	viewport viewport.Model
	spinner  spinner.Model
	styles   ui.Styles
	markdown *ui.MarkdownRenderer

	// Layout
	width    int
	height   int
	wordWrap int
	ready    bool

	// Conversation state
	messages       []message.Message
	loading        bool
	conversationID string
	err            string

	// Real-time channel
	channel          RealtimeChannel
	channelState     transport.State
	reconnectAttempt int

	backend   Backend
	endpoints config.Endpoints

	// requests correlates replies with sends by request id; order keeps
	// send order for replies that carry no id.
	requests map[string]*exchange
	order    []string

	// historyFetched holds conversation ids whose history was requested.
	historyFetched map[string]bool

	// Lifecycle
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	shutdownOnce   *sync.Once
	quitting       bool
}

// =============================================================================
// TEA MESSAGES
// =============================================================================

// channelEventMsg carries one event from the real-time channel.
type channelEventMsg struct {
	event transport.Event
}

// channelClosedMsg reports that the channel's event stream has ended.
type channelClosedMsg struct{}

// realtimeSentMsg reports the outcome of a real-time write.
type realtimeSentMsg struct {
	frame transport.OutboundFrame
	err   error
}

// fallbackReplyMsg reports the outcome of a fallback request.
type fallbackReplyMsg struct {
	requestID string
	resp      *transport.ChatResponse
	err       error
	elapsed   time.Duration
}

// historyLoadedMsg carries a fetched conversation history.
type historyLoadedMsg struct {
	conversationID string
	messages       []message.Message
	err            error
	elapsed        time.Duration
}

// ConfigReloadedMsg delivers a reloaded configuration to a running program.
type ConfigReloadedMsg struct {
	Config *config.Config
}
