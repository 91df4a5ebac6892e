package ui

import (
	"strings"
	"sync"

	"chatterm/internal/logging"
	"chatterm/internal/message"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// TimestampLayout is the local-time rendering of a message timestamp.
const TimestampLayout = "3:04:05 PM"

// minMarkdownWidth keeps glamour from wrapping every word on narrow terminals.
const minMarkdownWidth = 20

// MarkdownRenderer converts markdown to ANSI text. Renderers are built lazily
// per wrap width and their output is memoized in a RenderCache.
type MarkdownRenderer struct {
	mu        sync.Mutex
	style     string
	renderers map[int]*glamour.TermRenderer
	cache     *RenderCache
}

// NewMarkdownRenderer creates a renderer for a glamour standard style
// ("dark", "light", "notty", ...).
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	if style == "" {
		style = "light"
	}
	return &MarkdownRenderer{
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
		cache:     NewRenderCache(512),
	}
}

// Style returns the glamour style name in use.
func (r *MarkdownRenderer) Style() string {
	return r.style
}

// Cache exposes the render cache.
func (r *MarkdownRenderer) Cache() *RenderCache {
	return r.cache
}

// Render renders content wrapped at width. Malformed markdown, renderer
// errors and renderer panics all degrade to the literal text.
func (r *MarkdownRenderer) Render(content string, width int) string {
	if content == "" {
		return ""
	}
	if width < minMarkdownWidth {
		width = minMarkdownWidth
	}
	key := ComputeKey(r.style, width, content)
	return r.cache.GetOrCompute(key, func() string {
		return r.safeRender(content, width)
	})
}

func (r *MarkdownRenderer) safeRender(content string, width int) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.UIWarn("markdown renderer panicked: %v", rec)
			result = content
		}
	}()

	tr, err := r.renderer(width)
	if err != nil {
		logging.UIWarn("markdown renderer unavailable: %v", err)
		return content
	}
	rendered, err := tr.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

func (r *MarkdownRenderer) renderer(width int) (*glamour.TermRenderer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tr, ok := r.renderers[width]; ok {
		return tr, nil
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	r.renderers[width] = tr
	return tr, nil
}

// RoleLabel returns the display label for a role.
func RoleLabel(role message.Role) string {
	switch role {
	case message.RoleUser:
		return "You"
	case message.RoleAssistant:
		return "Assistant"
	case message.RoleSystem:
		return "System"
	default:
		if role == "" {
			return "Unknown"
		}
		return string(role)
	}
}

// FormatTimestamp renders a timestamp in local time.
func FormatTimestamp(msg message.Message) string {
	if msg.Timestamp.IsZero() {
		return ""
	}
	return msg.Timestamp.Local().Format(TimestampLayout)
}

// RenderMessage renders one message as a bubble within width columns. User
// messages sit on the right; every other role sits on the left under a role
// label.
func RenderMessage(msg message.Message, width int, s Styles, md *MarkdownRenderer) string {
	if width <= 0 {
		width = 80
	}
	bubbleWidth := width * 4 / 5
	if bubbleWidth < minMarkdownWidth+4 {
		bubbleWidth = width
	}

	bubble := s.AssistantBubble
	label := s.RoleLabel.Render(RoleLabel(msg.Role))
	if msg.IsUser() {
		bubble = s.UserBubble
		label = s.UserLabel.Render(RoleLabel(msg.Role))
	}

	innerWidth := bubbleWidth - bubble.GetHorizontalFrameSize()
	body := md.Render(msg.Content, innerWidth)

	footer := label
	if ts := FormatTimestamp(msg); ts != "" {
		footer = label + s.Muted.Render(" · ") + s.Timestamp.Render(ts)
	}

	rendered := bubble.MaxWidth(bubbleWidth).Render(lipgloss.JoinVertical(lipgloss.Left, body, footer))

	if msg.IsUser() {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, rendered)
	}
	return rendered
}
