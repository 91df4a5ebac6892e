package logging

import (
	"time"

	"go.uber.org/zap"
)

// AuditEventType names one step of a message exchange.
type AuditEventType string

const (
	AuditChannelState  AuditEventType = "channel_state"
	AuditExchangeSent  AuditEventType = "exchange_sent"
	AuditExchangeReply AuditEventType = "exchange_reply"
	AuditExchangeError AuditEventType = "exchange_error"
	AuditHistoryFetch  AuditEventType = "history_fetch"
)

// AuditEvent is one structured entry of the exchange audit trail.
type AuditEvent struct {
	EventType      AuditEventType
	Channel        string // "realtime" or "fallback"
	RequestID      string
	ConversationID string
	Duration       time.Duration
	Success        bool
	Error          string
	Count          int
	Detail         string
}

// AuditLogger writes exchange events with structured fields.
type AuditLogger struct {
	conversationID string
}

// Audit returns the exchange audit logger.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithConversation scopes audit events to a conversation.
func AuditWithConversation(conversationID string) *AuditLogger {
	return &AuditLogger{conversationID: conversationID}
}

// Log writes a single audit event.
func (a *AuditLogger) Log(e AuditEvent) {
	l := Get(CategoryAudit)
	if e.ConversationID == "" {
		e.ConversationID = a.conversationID
	}

	fields := []zap.Field{
		zap.String("event", string(e.EventType)),
		zap.Bool("success", e.Success),
	}
	if e.Channel != "" {
		fields = append(fields, zap.String("channel", e.Channel))
	}
	if e.RequestID != "" {
		fields = append(fields, zap.String("req", e.RequestID))
	}
	if e.ConversationID != "" {
		fields = append(fields, zap.String("conversation", e.ConversationID))
	}
	if e.Duration > 0 {
		fields = append(fields, zap.Duration("dur", e.Duration))
	}
	if e.Count > 0 {
		fields = append(fields, zap.Int("count", e.Count))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}

	msg := e.Detail
	if msg == "" {
		msg = string(e.EventType)
	}
	l.sugar.Desugar().Info(msg, fields...)
}

// ChannelState records a real-time channel state transition.
func (a *AuditLogger) ChannelState(state string) {
	a.Log(AuditEvent{EventType: AuditChannelState, Channel: "realtime", Success: true, Detail: state})
}

// Sent records an outgoing message on the given channel.
func (a *AuditLogger) Sent(channel, requestID string) {
	a.Log(AuditEvent{EventType: AuditExchangeSent, Channel: channel, RequestID: requestID, Success: true})
}

// Reply records a reply for requestID.
func (a *AuditLogger) Reply(channel, requestID string, dur time.Duration) {
	a.Log(AuditEvent{EventType: AuditExchangeReply, Channel: channel, RequestID: requestID, Duration: dur, Success: true})
}

// Failed records a failed exchange.
func (a *AuditLogger) Failed(channel, requestID string, err error) {
	e := AuditEvent{EventType: AuditExchangeError, Channel: channel, RequestID: requestID}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

// HistoryFetched records a history retrieval and how many records it returned.
func (a *AuditLogger) HistoryFetched(count int, dur time.Duration, err error) {
	e := AuditEvent{EventType: AuditHistoryFetch, Duration: dur, Count: count, Success: err == nil}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}
