// Package message defines the chat message record shared by the transport
// layer and the terminal views.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single entry in a conversation. Content is raw markdown.
// Messages are never mutated after creation.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a message stamped with the current time and a fresh ID.
func New(role Role, content string) Message {
	return Message{
		ID:        NewID(),
		Content:   content,
		Role:      role,
		Timestamp: time.Now(),
	}
}

// NewID returns a collision-resistant message identifier.
func NewID() string {
	return uuid.New().String()
}

// IsUser reports whether the message was authored by the local user.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// timestampLayouts lists the accepted timestamp encodings, most specific first.
// The backend emits naive UTC datetimes without a zone designator.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 timestamp. Zone-less values are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// wireMessage mirrors Message with a string timestamp for lenient decoding.
type wireMessage struct {
	ID        string `json:"id,omitempty"`
	Content   string `json:"content"`
	Role      Role   `json:"role"`
	Timestamp string `json:"timestamp"`
}

// MarshalJSON encodes the timestamp as RFC 3339 in UTC.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		ID:        m.ID,
		Content:   m.Content,
		Role:      m.Role,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// UnmarshalJSON accepts zone-less timestamps and leaves a missing ID empty.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var ts time.Time
	if w.Timestamp != "" {
		parsed, err := ParseTimestamp(w.Timestamp)
		if err != nil {
			return err
		}
		ts = parsed
	}

	*m = Message{
		ID:        w.ID,
		Content:   w.Content,
		Role:      w.Role,
		Timestamp: ts,
	}
	return nil
}
