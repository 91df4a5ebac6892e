package ui

import (
	"strings"
	"testing"
	"time"

	"chatterm/internal/message"

	"github.com/stretchr/testify/assert"
)

func testRenderer() *MarkdownRenderer {
	return NewMarkdownRenderer("notty")
}

func TestMessageList_EmptyState(t *testing.T) {
	s := NewStyles(LightTheme())
	md := testRenderer()

	tests := []struct {
		name      string
		list      MessageList
		wantEmpty bool
	}{
		{"no messages, idle", MessageList{Width: 80}, true},
		{"no messages, loading", MessageList{Loading: true, Width: 80}, false},
		{"messages, idle", MessageList{Messages: []message.Message{message.New(message.RoleUser, "hi")}, Width: 80}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantEmpty, tt.list.ShowsEmptyState())
			out := tt.list.Render(s, md)
			assert.Equal(t, tt.wantEmpty, strings.Contains(out, EmptyStateText))
		})
	}
}

func TestMessageList_OrderAndLoadingIndicator(t *testing.T) {
	s := NewStyles(LightTheme())
	list := MessageList{
		Messages: []message.Message{
			message.New(message.RoleUser, "first question"),
			message.New(message.RoleAssistant, "second answer"),
			message.New(message.RoleUser, "first question"),
		},
		Loading: true,
		Spinner: "*",
		Width:   80,
	}

	out := list.Render(s, testRenderer())

	first := strings.Index(out, "first question")
	second := strings.Index(out, "second answer")
	last := strings.LastIndex(out, "first question")
	loading := strings.Index(out, LoadingText)

	assert.True(t, first >= 0 && first < second, "insertion order is display order")
	assert.True(t, second < last, "duplicates are not removed")
	assert.True(t, last < loading, "loading indicator follows the messages")
	assert.Contains(t, out, "* "+LoadingText)
}

func TestRenderMessage_RoleStyling(t *testing.T) {
	s := NewStyles(LightTheme())
	md := testRenderer()
	ts := time.Date(2024, 5, 1, 15, 4, 5, 0, time.Local)

	user := RenderMessage(message.Message{Role: message.RoleUser, Content: "hi there", Timestamp: ts}, 100, s, md)
	assistant := RenderMessage(message.Message{Role: message.RoleAssistant, Content: "hello", Timestamp: ts}, 100, s, md)

	assert.Contains(t, user, "You")
	assert.Contains(t, user, "3:04:05 PM")
	assert.True(t, strings.HasPrefix(user, " "), "user messages are right-aligned")

	assert.Contains(t, assistant, "Assistant")
	assert.Contains(t, assistant, "3:04:05 PM")
	assert.False(t, strings.HasPrefix(assistant, " "), "assistant messages are left-aligned")
}

func TestRenderMessage_UnknownRoleKeepsLabel(t *testing.T) {
	out := RenderMessage(message.Message{Role: "tool", Content: "ran"}, 80, NewStyles(LightTheme()), testRenderer())
	assert.Contains(t, out, "tool")
	assert.Contains(t, out, "ran")
}

func TestMarkdownRenderer_CachesByContentAndWidth(t *testing.T) {
	md := testRenderer()

	a := md.Render("# Title\n\nsome *text*", 60)
	b := md.Render("# Title\n\nsome *text*", 60)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, md.Cache().Len())

	md.Render("# Title\n\nsome *text*", 40)
	assert.Equal(t, 2, md.Cache().Len())

	hits, misses := md.Cache().Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
}

func TestMarkdownRenderer_MalformedMarkdownDegrades(t *testing.T) {
	md := testRenderer()
	out := md.Render("```go\nunterminated fence", 60)
	assert.Contains(t, out, "unterminated fence")
	assert.Empty(t, md.Render("", 60))
}

func TestFormatTimestamp(t *testing.T) {
	assert.Empty(t, FormatTimestamp(message.Message{}))
	ts := time.Date(2024, 1, 2, 9, 5, 7, 0, time.Local)
	assert.Equal(t, "9:05:07 AM", FormatTimestamp(message.Message{Timestamp: ts}))
}
