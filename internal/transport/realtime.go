package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"chatterm/internal/logging"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// REAL-TIME CHANNEL
// =============================================================================

// State is the connection state of the real-time channel.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateReconnecting
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Event is delivered on Realtime.Events.
type Event interface {
	isEvent()
}

// StateEvent reports a state transition. Attempt and Delay are set for
// StateReconnecting.
type StateEvent struct {
	State   State
	Attempt int
	Delay   time.Duration
}

// FrameEvent carries one decoded inbound frame.
type FrameEvent struct {
	Frame InboundFrame
}

// ErrorEvent reports a dial failure, a dropped connection or an undecodable
// frame. It never reports a deliberate Close.
type ErrorEvent struct {
	Err error
}

func (StateEvent) isEvent() {}
func (FrameEvent) isEvent() {}
func (ErrorEvent) isEvent() {}

var (
	// ErrNotOpen is returned by Send while the channel is not open.
	ErrNotOpen = errors.New("realtime channel is not open")

	// ErrChannelClosed is returned by Start after Close.
	ErrChannelClosed = errors.New("realtime channel closed")

	errPeerClosed = errors.New("peer closed connection")
)

// ReconnectPolicy bounds reconnection. MaxAttempts <= 0 disables it: the
// channel stays closed after the first failure or drop.
type ReconnectPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Option configures a Realtime channel.
type Option func(*Realtime)

// WithDialer replaces the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(r *Realtime) {
		if d != nil {
			r.dialer = d
		}
	}
}

// WithHeader sets extra handshake headers.
func WithHeader(h http.Header) Option {
	return func(r *Realtime) {
		r.header = h
	}
}

// WithReconnect sets the reconnection policy.
func WithReconnect(p ReconnectPolicy) Option {
	return func(r *Realtime) {
		r.policy = p
	}
}

// WithWriteTimeout bounds a single frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(r *Realtime) {
		if d > 0 {
			r.writeTimeout = d
		}
	}
}

// Realtime is a WebSocket channel to the chat backend. It connects on Start,
// reconnects per its ReconnectPolicy, and releases everything on Close.
type Realtime struct {
	url          string
	dialer       *websocket.Dialer
	header       http.Header
	policy       ReconnectPolicy
	writeTimeout time.Duration

	state  atomic.Int32
	events chan Event

	// connMu guards conn and serializes frame writes.
	connMu sync.Mutex
	conn   *websocket.Conn

	lifeMu  sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRealtime creates a channel for url. Nothing is dialed until Start.
func NewRealtime(url string, opts ...Option) *Realtime {
	r := &Realtime{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		policy: ReconnectPolicy{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     15 * time.Second,
		},
		writeTimeout: 10 * time.Second,
		events:       make(chan Event, 64),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.state.Store(int32(StateConnecting))
	return r
}

// URL returns the address the channel dials.
func (r *Realtime) URL() string {
	return r.url
}

// State returns the current connection state.
func (r *Realtime) State() State {
	return State(r.state.Load())
}

// Events returns the event stream. It is closed once the channel has shut
// down for good.
func (r *Realtime) Events() <-chan Event {
	return r.events
}

// Start begins connecting in the background. It is non-blocking; calling it
// twice is a no-op.
func (r *Realtime) Start(ctx context.Context) error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	if r.closed {
		return ErrChannelClosed
	}
	if r.started {
		return nil
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	go r.run(ctx)
	return nil
}

// Close shuts the channel down: it sends a normal-closure frame if
// connected, closes the socket and waits for every goroutine to exit.
// It is idempotent.
func (r *Realtime) Close() error {
	r.lifeMu.Lock()
	if r.closed {
		r.lifeMu.Unlock()
		return nil
	}
	r.closed = true
	started, cancel := r.started, r.cancel
	r.lifeMu.Unlock()

	if !started {
		r.state.Store(int32(StateClosed))
		close(r.events)
		close(r.done)
		return nil
	}

	cancel()
	<-r.done
	return nil
}

// Send writes one frame. It returns ErrNotOpen unless the channel is open.
func (r *Realtime) Send(ctx context.Context, f OutboundFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.connMu.Lock()
	defer r.connMu.Unlock()

	if r.conn == nil || r.State() != StateOpen {
		return ErrNotOpen
	}

	deadline := time.Now().Add(r.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := r.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("realtime write: %w", err)
	}
	if err := r.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("realtime write: %w", err)
	}
	logging.TransportDebug("realtime frame sent (req=%s)", f.RequestID)
	return nil
}

func (r *Realtime) run(ctx context.Context) {
	defer close(r.done)
	defer close(r.events)

	bo := r.newBackOff()
	attempt := 0

	for {
		r.setState(ctx, StateEvent{State: StateConnecting, Attempt: attempt})

		err := r.connectAndServe(ctx, bo)
		if ctx.Err() != nil {
			r.finish(StateClosed)
			return
		}

		if err != nil {
			logging.TransportWarn("realtime channel error: %v", err)
			r.setState(ctx, StateEvent{State: StateErrored})
			r.emit(ctx, ErrorEvent{Err: err})
		} else {
			logging.Transport("realtime channel closed by peer")
			r.setState(ctx, StateEvent{State: StateClosed})
		}

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			logging.Transport("realtime channel giving up after %d reconnect attempts", attempt)
			return
		}
		attempt++
		r.setState(ctx, StateEvent{State: StateReconnecting, Attempt: attempt, Delay: delay})

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			r.finish(StateClosed)
			return
		case <-t.C:
		}
	}
}

func (r *Realtime) newBackOff() backoff.BackOff {
	if r.policy.MaxAttempts <= 0 {
		return &backoff.StopBackOff{}
	}
	eb := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		eb.InitialInterval = r.policy.InitialInterval
	}
	if r.policy.MaxInterval > 0 {
		eb.MaxInterval = r.policy.MaxInterval
	}
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithMaxRetries(eb, uint64(r.policy.MaxAttempts))
}

// connectAndServe dials once and then blocks until the connection ends. A nil
// return means the peer closed the connection normally.
func (r *Realtime) connectAndServe(ctx context.Context, bo backoff.BackOff) error {
	timer := logging.StartTimer(logging.CategoryTransport, "realtime dial")
	conn, resp, err := r.dialer.DialContext(ctx, r.url, r.header)
	timer.Stop()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("connect %s: %w", r.url, err)
	}

	bo.Reset()
	r.setConn(conn)
	defer r.setConn(nil)

	r.setState(ctx, StateEvent{State: StateOpen})
	logging.Transport("realtime channel open: %s", r.url)

	return r.serve(ctx, conn)
}

// serve runs the reader and a shutdown watcher for one connection.
func (r *Realtime) serve(ctx context.Context, conn *websocket.Conn) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return errPeerClosed
				}
				return fmt.Errorf("read: %w", err)
			}

			var f InboundFrame
			if err := json.Unmarshal(data, &f); err != nil {
				logging.TransportWarn("dropping undecodable frame (%d bytes): %v", len(data), err)
				r.emit(gctx, ErrorEvent{Err: fmt.Errorf("malformed frame: %w", err)})
				continue
			}
			r.emit(gctx, FrameEvent{Frame: f})
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		}
		conn.Close()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, errPeerClosed) {
		return nil
	}
	return err
}

func (r *Realtime) setConn(conn *websocket.Conn) {
	r.connMu.Lock()
	r.conn = conn
	r.connMu.Unlock()
}

func (r *Realtime) setState(ctx context.Context, ev StateEvent) {
	r.state.Store(int32(ev.State))
	logging.Audit().ChannelState(ev.State.String())
	r.emit(ctx, ev)
}

// finish records the terminal state after cancellation. The event is
// dropped if nobody is reading.
func (r *Realtime) finish(s State) {
	r.state.Store(int32(s))
	logging.Audit().ChannelState(s.String())
	select {
	case r.events <- StateEvent{State: s}:
	default:
	}
}

func (r *Realtime) emit(ctx context.Context, ev Event) {
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}
