package config

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	chatPath     = "/api/chat"
	historyPath  = "/api/conversations/"
	realtimePath = "/ws/chat"
)

// Endpoints holds the resolved backend addresses.
type Endpoints struct {
	Base     string
	Chat     string
	Realtime string
}

// History returns the history URL for a conversation.
func (e Endpoints) History(conversationID string) string {
	return strings.TrimSuffix(e.Base, "/") + historyPath + url.PathEscape(conversationID)
}

// Endpoints derives every backend address from api.base_url. The WebSocket
// address follows the base URL's scheme (http→ws, https→wss) and path prefix
// unless api.realtime_url is set.
func (c *Config) Endpoints() (Endpoints, error) {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return Endpoints{}, fmt.Errorf("invalid api.base_url %q: %w", c.API.BaseURL, err)
	}

	base := strings.TrimSuffix(u.String(), "/")
	ep := Endpoints{
		Base: base,
		Chat: base + chatPath,
	}

	if c.API.RealtimeURL != "" {
		ep.Realtime = c.API.RealtimeURL
		return ep, nil
	}

	ws := *u
	switch u.Scheme {
	case "https":
		ws.Scheme = "wss"
	case "http":
		ws.Scheme = "ws"
	default:
		return Endpoints{}, fmt.Errorf("cannot derive realtime url from scheme %q", u.Scheme)
	}
	ws.Path = strings.TrimSuffix(u.Path, "/") + realtimePath
	ws.RawPath = ""
	ws.RawQuery = ""
	ws.Fragment = ""
	ep.Realtime = ws.String()

	return ep, nil
}
