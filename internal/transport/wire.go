// Package transport talks to the chat backend: a WebSocket channel for
// push-style replies and an HTTP client for the fallback and history calls.
package transport

import (
	"fmt"
	"strings"
)

// OutboundFrame is the payload of a user send. It is written as-is over the
// real-time channel and doubles as the fallback request body.
type OutboundFrame struct {
	Message string `json:"message"`
	// ConversationID is nil until the backend assigns one, and serializes as null.
	ConversationID *string `json:"conversation_id"`
	RequestID      string  `json:"request_id,omitempty"`
}

// NewOutboundFrame builds a frame, leaving conversation_id null when
// conversationID is empty.
func NewOutboundFrame(text, conversationID, requestID string) OutboundFrame {
	f := OutboundFrame{Message: text, RequestID: requestID}
	if conversationID != "" {
		id := conversationID
		f.ConversationID = &id
	}
	return f
}

// ChatRequest is the POST /api/chat body.
type ChatRequest = OutboundFrame

// InboundFrame is one frame pushed by the backend. Only frames with a
// non-empty Response produce an assistant message.
type InboundFrame struct {
	Response       string `json:"response,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// HasReply reports whether the frame carries assistant content.
func (f InboundFrame) HasReply() bool {
	return f.Response != ""
}

// IsError reports whether the frame is a backend error notice.
func (f InboundFrame) IsError() bool {
	return f.Response == "" && f.Error != ""
}

// ChatResponse is the POST /api/chat reply.
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	RequestID      string `json:"request_id,omitempty"`
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Detail string `json:"detail"`
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	detail := strings.TrimSpace(e.Detail)
	if detail == "" {
		return fmt.Sprintf("backend returned status %d", e.Code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Code, detail)
}
