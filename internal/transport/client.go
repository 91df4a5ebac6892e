package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chatterm/internal/config"
	"chatterm/internal/logging"
	"chatterm/internal/message"
)

// =============================================================================
// FALLBACK / HISTORY CLIENT
// =============================================================================

// maxErrorBody bounds how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// Client performs the request/response calls against the chat backend.
type Client struct {
	endpoints config.Endpoints
	client    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// NewClient creates a backend client for the given endpoints.
func NewClient(endpoints config.Endpoints, opts ...ClientOption) *Client {
	c := &Client{
		endpoints: endpoints,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat sends one message over the fallback endpoint and returns the reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	timer := logging.StartTimer(logging.CategoryTransport, "POST /api/chat")
	defer timer.Stop()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Chat, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	var result ChatResponse
	if err := c.do(httpReq, &result); err != nil {
		return nil, err
	}
	if result.RequestID == "" {
		result.RequestID = req.RequestID
	}
	return &result, nil
}

// History fetches the stored messages of a conversation in backend order.
// Records the backend stored without an identifier come back with an empty
// ID; callers assign one after merging.
func (c *Client) History(ctx context.Context, conversationID string) ([]message.Message, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation id required")
	}
	timer := logging.StartTimer(logging.CategoryTransport, "GET /api/conversations")
	defer timer.Stop()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.History(conversationID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	var records []message.Message
	if err := c.do(httpReq, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &StatusError{Code: resp.StatusCode, Detail: string(bodyBytes)}
		var eb errorBody
		if json.Unmarshal(bodyBytes, &eb) == nil && eb.Detail != "" {
			serr.Detail = eb.Detail
		}
		logging.TransportWarn("%s %s: %v", req.Method, req.URL.Path, serr)
		return serr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
