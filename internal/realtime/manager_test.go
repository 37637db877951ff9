package realtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Planora/internal/event"
	"Planora/internal/model"
	"Planora/internal/realtime"

	"github.com/stretchr/testify/require"
)

// fakeConn is an in-process stand-in for the websocket transport. Reads
// block until an event is queued or the connection is closed.
type fakeConn struct {
	mu      sync.Mutex
	inbound chan event.WsEvent
	closed  chan struct{}
	once    sync.Once
	written []event.WsEvent
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan event.WsEvent, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadJSON(v interface{}) error {
	select {
	case ev := <-c.inbound:
		*(v.(*event.WsEvent)) = ev
		return nil
	case <-c.closed:
		return errors.New("connection closed")
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	if ev, ok := v.(event.WsEvent); ok {
		c.written = append(c.written, ev)
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) writtenEvents() []event.WsEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.WsEvent(nil), c.written...)
}

// scriptedDial fails its first `failures` dials, then hands out fresh
// fake connections.
type scriptedDial struct {
	mu       sync.Mutex
	failures int
	calls    int
	conns    []*fakeConn
}

func (d *scriptedDial) dial(context.Context) (realtime.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls <= d.failures {
		return nil, errors.New("dial refused")
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *scriptedDial) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *scriptedDial) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// eventCounter tallies received events per name.
type eventCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newEventCounter() *eventCounter {
	return &eventCounter{counts: make(map[string]int)}
}

func (r *eventCounter) watch(m *realtime.Manager, names ...string) {
	for _, name := range names {
		name := name
		m.On(name, func(event.WsEvent) {
			r.mu.Lock()
			r.counts[name]++
			r.mu.Unlock()
		})
	}
}

func (r *eventCounter) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

func newTestManager(dial *scriptedDial) *realtime.Manager {
	return realtime.NewManager("ws://unused/ws",
		model.Identity{ActorID: "a1", Role: model.RoleClient},
		realtime.WithDialFunc(dial.dial),
		realtime.WithRetryPolicy(3, 10*time.Millisecond),
	)
}

func TestManager_StopsAfterExhaustedBudget(t *testing.T) {
	dial := &scriptedDial{failures: 1000}
	m := newTestManager(dial)
	counter := newEventCounter()
	counter.watch(m, realtime.EventConnectError, realtime.EventDisconnect)

	m.Connect()

	require.Eventually(t, func() bool {
		return m.State() == realtime.StateDisconnected
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, 3, dial.count())
	require.Equal(t, 3, counter.count(realtime.EventConnectError))
	require.Equal(t, 1, counter.count(realtime.EventDisconnect))

	// no further attempt happens on its own
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 3, dial.count())

	// an explicit Connect opens a fresh budget
	m.Connect()
	require.Eventually(t, func() bool {
		return dial.count() == 6
	}, time.Second, 5*time.Millisecond)
}

func TestManager_ConnectWhileLiveIsNoOp(t *testing.T) {
	dial := &scriptedDial{}
	m := newTestManager(dial)
	defer m.Disconnect()

	m.Connect()
	require.Eventually(t, m.IsConnected, time.Second, 5*time.Millisecond)

	m.Connect()
	m.Connect()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, 1, dial.count())
}

func TestManager_DisconnectCancelsPendingRetry(t *testing.T) {
	dial := &scriptedDial{failures: 1000}
	m := realtime.NewManager("ws://unused/ws",
		model.Identity{ActorID: "a1", Role: model.RoleClient},
		realtime.WithDialFunc(dial.dial),
		realtime.WithRetryPolicy(3, time.Minute),
	)

	m.Connect()
	require.Eventually(t, func() bool {
		return m.State() == realtime.StateReconnecting
	}, time.Second, 5*time.Millisecond)

	m.Disconnect()
	require.Equal(t, realtime.StateManuallyDisconnected, m.State())

	// the minute-long backoff must not produce another dial
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, dial.count())
}

func TestManager_DisconnectIsTerminal(t *testing.T) {
	dial := &scriptedDial{}
	m := newTestManager(dial)

	m.Connect()
	require.Eventually(t, m.IsConnected, time.Second, 5*time.Millisecond)

	m.Disconnect()
	m.Disconnect()
	require.Equal(t, realtime.StateManuallyDisconnected, m.State())

	// the dropped transport must not trigger recovery
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, dial.count())
	require.ErrorIs(t, m.JoinProject("p1"), realtime.ErrNotConnected)
}

func TestManager_ReconnectsAfterTransportDrop(t *testing.T) {
	dial := &scriptedDial{}
	m := newTestManager(dial)
	defer m.Disconnect()

	counter := newEventCounter()
	counter.watch(m, realtime.EventDisconnect)

	m.Connect()
	require.Eventually(t, m.IsConnected, time.Second, 5*time.Millisecond)

	// server-side drop
	dial.lastConn().Close()

	require.Eventually(t, func() bool {
		return dial.count() == 2 && m.IsConnected()
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, counter.count(realtime.EventDisconnect))
}

func TestManager_DispatchesServerEvents(t *testing.T) {
	dial := &scriptedDial{}
	m := newTestManager(dial)
	defer m.Disconnect()

	var mu sync.Mutex
	var got []event.WsEvent
	off := m.On(event.EventNewMessage, func(ev event.WsEvent) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	m.Connect()
	require.Eventually(t, m.IsConnected, time.Second, 5*time.Millisecond)

	dial.lastConn().inbound <- event.WsEvent{Event: event.EventNewMessage}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	// after unsubscribing nothing more is delivered
	off()
	off() // safe to call twice
	dial.lastConn().inbound <- event.WsEvent{Event: event.EventNewMessage}
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
}

func TestManager_SendRequiresLiveStream(t *testing.T) {
	dial := &scriptedDial{}
	m := newTestManager(dial)

	require.ErrorIs(t, m.JoinProject("p1"), realtime.ErrNotConnected)

	m.Connect()
	require.Eventually(t, m.IsConnected, time.Second, 5*time.Millisecond)
	defer m.Disconnect()

	require.NoError(t, m.JoinProject("p1"))
	require.NoError(t, m.StartTyping("p1"))

	written := dial.lastConn().writtenEvents()
	require.Len(t, written, 2)
	require.Equal(t, event.EventJoinProject, written[0].Event)
	require.Equal(t, event.EventTyping, written[1].Event)
}
