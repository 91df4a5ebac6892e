package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatterm/internal/config"
	"chatterm/internal/message"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.API.BaseURL = srv.URL
	ep, err := cfg.Endpoints()
	require.NoError(t, err)

	return NewClient(ep, WithHTTPClient(srv.Client()), WithTimeout(5*time.Second))
}

func TestClient_Chat(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"Hi","conversation_id":"xyz"}`))
	}))

	resp, err := client.Chat(context.Background(), NewOutboundFrame("hello", "", "req-9"))
	require.NoError(t, err)

	assert.Equal(t, "Hi", resp.Response)
	assert.Equal(t, "xyz", resp.ConversationID)
	assert.Equal(t, "req-9", resp.RequestID, "request id carried over when the backend omits it")

	assert.Equal(t, "hello", got["message"])
	assert.Contains(t, got, "conversation_id")
	assert.Nil(t, got["conversation_id"])
	assert.Equal(t, "req-9", got["request_id"])
}

func TestClient_ChatSendsConversationID(t *testing.T) {
	var got OutboundFrame
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response":"again","conversation_id":"abc"}`))
	}))

	_, err := client.Chat(context.Background(), NewOutboundFrame("next", "abc", "r"))
	require.NoError(t, err)
	require.NotNil(t, got.ConversationID)
	assert.Equal(t, "abc", *got.ConversationID)
}

func TestClient_ChatStatusError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"Error communicating with OpenAI API: quota"}`))
	}))

	_, err := client.Chat(context.Background(), NewOutboundFrame("hello", "", ""))
	require.Error(t, err)

	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusInternalServerError, serr.Code)
	assert.Equal(t, "Error communicating with OpenAI API: quota", serr.Detail)
}

func TestClient_ChatPlainTextError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))

	_, err := client.Chat(context.Background(), NewOutboundFrame("hello", "", ""))
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusBadGateway, serr.Code)
	assert.Contains(t, serr.Error(), "gateway down")
}

func TestClient_ChatUndecodableBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))

	_, err := client.Chat(context.Background(), NewOutboundFrame("hello", "", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestClient_ChatHonorsCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := client.Chat(ctx, NewOutboundFrame("hello", "", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_History(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/conversations/abc", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"role":"user","content":"hello","timestamp":"2024-05-01T12:00:00.123456"},
			{"id":"m2","role":"assistant","content":"**hi**","timestamp":"2024-05-01T12:00:01Z"}
		]`))
	}))

	msgs, err := client.History(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Empty(t, msgs[0].ID)
	assert.Equal(t, message.RoleUser, msgs[0].Role)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC), msgs[0].Timestamp)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "**hi**", msgs[1].Content)
}

func TestClient_HistoryEscapesID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/a%2Fb", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`[]`))
	}))

	msgs, err := client.History(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestClient_HistoryNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Conversation not found"}`))
	}))

	_, err := client.History(context.Background(), "missing")
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusNotFound, serr.Code)
	assert.Equal(t, "backend returned status 404: Conversation not found", serr.Error())
}

func TestClient_HistoryRequiresID(t *testing.T) {
	client := NewClient(config.Endpoints{})
	_, err := client.History(context.Background(), "")
	assert.Error(t, err)
}
