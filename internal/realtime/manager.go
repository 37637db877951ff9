package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"Planora/internal/event"
	"Planora/internal/model"

	"github.com/gorilla/websocket"
)

// State is the connection manager's lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	// StateManuallyDisconnected is terminal: the manager never leaves it
	// on its own, only an explicit Connect() does.
	StateManuallyDisconnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateManuallyDisconnected:
		return "manually_disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transport-level events delivered to subscribers alongside the server's
// own events.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventConnectError = "connect_error"
)

var (
	// reconnection policy: fixed attempt budget, fixed inter-attempt delay
	reconnectAttempts = 3
	reconnectDelay    = 2000 * time.Millisecond
)

// Conn is the slice of *websocket.Conn the manager needs; injectable for
// tests.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// DialFunc opens a transport stream. The default dials the hub's
// websocket endpoint with the handshake identity in the query string.
type DialFunc func(ctx context.Context) (Conn, error)

// Manager owns one actor's transport stream. It is created on login and
// torn down on logout; consumers receive it by injection, never through a
// package-level singleton. Event callbacks run sequentially on the read
// goroutine, in arrival order.
type Manager struct {
	identity model.Identity
	dial     DialFunc

	mu      sync.Mutex
	state   State
	conn    Conn
	runCtx  context.Context
	runStop context.CancelFunc

	subsMu sync.Mutex
	subs   map[string]map[int]func(event.WsEvent)
	nextID int

	attempts int
	delay    time.Duration
}

// Option tunes a Manager.
type Option func(*Manager)

// WithDialFunc replaces the websocket dialer.
func WithDialFunc(dial DialFunc) Option {
	return func(m *Manager) { m.dial = dial }
}

// WithRetryPolicy overrides the reconnection budget and delay.
func WithRetryPolicy(attempts int, delay time.Duration) Option {
	return func(m *Manager) {
		m.attempts = attempts
		m.delay = delay
	}
}

// NewManager builds a connection manager for one actor against the hub's
// socket endpoint.
func NewManager(socketURL string, identity model.Identity, opts ...Option) *Manager {
	m := &Manager{
		identity: identity,
		state:    StateDisconnected,
		subs:     make(map[string]map[int]func(event.WsEvent)),
		attempts: reconnectAttempts,
		delay:    reconnectDelay,
	}
	m.dial = defaultDialer(socketURL, identity)

	for _, opt := range opts {
		opt(m)
	}
	return m
}

func defaultDialer(socketURL string, identity model.Identity) DialFunc {
	return func(ctx context.Context) (Conn, error) {
		u, err := url.Parse(socketURL)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		q.Set("token", identity.ActorID)
		q.Set("actorId", identity.ActorID)
		q.Set("role", identity.Role.String())
		u.RawQuery = q.Encode()

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the stream is live.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// Connect establishes the stream. Calling it while a session is live or
// being established is a no-op; after a manual disconnect or an exhausted
// reconnection budget it starts fresh.
func (m *Manager) Connect() {
	m.mu.Lock()
	switch m.state {
	case StateConnecting, StateConnected, StateReconnecting:
		m.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.runCtx = ctx
	m.runStop = cancel
	m.state = StateConnecting
	m.mu.Unlock()

	go m.run(ctx)
}

// run drives the dial/read/retry cycle until the budget is exhausted or
// the manager is manually disconnected.
func (m *Manager) run(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		conn, err := m.dial(ctx)
		if err != nil {
			m.emit(event.WsEvent{Event: EventConnectError})

			if ctx.Err() != nil {
				// manual disconnect raced the dial
				return
			}
			if attempt >= m.attempts {
				m.exhaust()
				return
			}

			m.setState(StateReconnecting)
			select {
			case <-ctx.Done():
				// a pending attempt dies the instant Disconnect is called
				return
			case <-time.After(m.delay):
			}
			continue
		}

		m.mu.Lock()
		if ctx.Err() != nil {
			m.mu.Unlock()
			conn.Close()
			return
		}
		m.conn = conn
		m.state = StateConnected
		m.mu.Unlock()

		m.emit(event.WsEvent{Event: EventConnect})

		err = m.readLoop(ctx, conn)
		if ctx.Err() != nil {
			return
		}

		// transport dropped: a fresh budget applies to the recovery
		m.emit(event.WsEvent{Event: EventDisconnect, Payload: errPayload(err)})
		m.setState(StateReconnecting)
		attempt = 0

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.delay):
		}
	}
}

func (m *Manager) readLoop(ctx context.Context, conn Conn) error {
	for {
		var ev event.WsEvent
		if err := conn.ReadJSON(&ev); err != nil {
			m.mu.Lock()
			if m.conn == conn {
				m.conn = nil
			}
			m.mu.Unlock()
			conn.Close()
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		m.emit(ev)
	}
}

// exhaust ends automatic recovery: the actor must call Connect again.
func (m *Manager) exhaust() {
	m.mu.Lock()
	if m.state != StateManuallyDisconnected {
		m.state = StateDisconnected
	}
	m.mu.Unlock()
	m.emit(event.WsEvent{Event: EventDisconnect})
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state != StateManuallyDisconnected {
		m.state = s
	}
	m.mu.Unlock()
}

// Disconnect tears the session down for good. Idempotent; cancels any
// pending reconnection attempt immediately and clears every
// subscription, so no callback fires after it returns.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	alreadyDown := m.state == StateManuallyDisconnected
	m.state = StateManuallyDisconnected
	stop := m.runStop
	conn := m.conn
	m.conn = nil
	m.runStop = nil
	m.mu.Unlock()

	if alreadyDown {
		return
	}
	if stop != nil {
		stop()
	}
	if conn != nil {
		conn.Close()
	}

	m.subsMu.Lock()
	m.subs = make(map[string]map[int]func(event.WsEvent))
	m.subsMu.Unlock()
}

// -----------------------------------------------------------------
// Typed publish-subscribe
// -----------------------------------------------------------------

// On registers a callback for an event name and returns its unsubscribe
// handle. Every subscription has exactly one disposal point: the returned
// function, which is safe to call more than once.
func (m *Manager) On(eventName string, fn func(event.WsEvent)) func() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	byID, ok := m.subs[eventName]
	if !ok {
		byID = make(map[int]func(event.WsEvent))
		m.subs[eventName] = byID
	}

	m.nextID++
	id := m.nextID
	byID[id] = fn

	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		if byID, ok := m.subs[eventName]; ok {
			delete(byID, id)
			if len(byID) == 0 {
				delete(m.subs, eventName)
			}
		}
	}
}

func (m *Manager) emit(ev event.WsEvent) {
	m.subsMu.Lock()
	callbacks := make([]func(event.WsEvent), 0, len(m.subs[ev.Event]))
	for _, fn := range m.subs[ev.Event] {
		callbacks = append(callbacks, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range callbacks {
		fn(ev)
	}
}

func errPayload(err error) []byte {
	if err == nil {
		return nil
	}
	b, _ := json.Marshal(struct {
		Reason string `json:"reason"`
	}{Reason: err.Error()})
	return b
}
