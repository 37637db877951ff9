package hub

import (
	"sync"
	"testing"
	"time"

	"Planora/internal/event"

	"github.com/stretchr/testify/require"
)

type typingRecorder struct {
	mu      sync.Mutex
	updates []event.TypingPayload
}

func (r *typingRecorder) record(p event.TypingPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, p)
}

func (r *typingRecorder) last() (event.TypingPayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return event.TypingPayload{}, false
	}
	return r.updates[len(r.updates)-1], true
}

func (r *typingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func newTestTracker(ttl time.Duration) (*TypingTracker, *typingRecorder) {
	rec := &typingRecorder{}
	tracker := NewTypingTracker(rec.record)
	tracker.ttl = ttl
	return tracker, rec
}

func TestTypingTracker_ExpiresWithoutStop(t *testing.T) {
	tracker, rec := newTestTracker(30 * time.Millisecond)
	defer tracker.Stop()

	tracker.StartTyping("a1", "p1")
	require.True(t, tracker.IsTyping("a1", "p1"))

	require.Eventually(t, func() bool {
		return !tracker.IsTyping("a1", "p1")
	}, time.Second, 5*time.Millisecond)

	last, ok := rec.last()
	require.True(t, ok)
	require.Equal(t, event.TypingPayload{ActorID: "a1", ProjectID: "p1", IsTyping: false}, last)
}

func TestTypingTracker_RefreshResetsTimer(t *testing.T) {
	tracker, _ := newTestTracker(60 * time.Millisecond)
	defer tracker.Stop()

	tracker.StartTyping("a1", "p1")
	time.Sleep(40 * time.Millisecond)
	tracker.StartTyping("a1", "p1")
	time.Sleep(40 * time.Millisecond)

	// 80ms since the first start but only 40ms since the refresh
	require.True(t, tracker.IsTyping("a1", "p1"))
}

func TestTypingTracker_OneEntryPerActorProject(t *testing.T) {
	tracker, _ := newTestTracker(time.Minute)
	defer tracker.Stop()

	tracker.StartTyping("a1", "p1")
	tracker.StartTyping("a1", "p1")
	tracker.StartTyping("a1", "p2")

	require.Len(t, tracker.Snapshot(), 2)
}

func TestTypingTracker_StopCancelsTimer(t *testing.T) {
	tracker, rec := newTestTracker(20 * time.Millisecond)
	defer tracker.Stop()

	tracker.StartTyping("a1", "p1")
	tracker.StopTyping("a1", "p1")
	require.False(t, tracker.IsTyping("a1", "p1"))

	// one start plus one stop; the cancelled expiry must not add a third
	count := rec.count()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, count, rec.count())
	require.Equal(t, 2, count)
}

func TestTypingTracker_StopIsNoOpWhenAbsent(t *testing.T) {
	tracker, rec := newTestTracker(time.Minute)
	defer tracker.Stop()

	tracker.StopTyping("ghost", "p1")
	require.Equal(t, 0, rec.count())
}

func TestTypingTracker_StopAllForActor(t *testing.T) {
	tracker, _ := newTestTracker(time.Minute)
	defer tracker.Stop()

	tracker.StartTyping("a1", "p1")
	tracker.StartTyping("a1", "p2")
	tracker.StartTyping("a2", "p1")

	tracker.StopAllForActor("a1")

	require.False(t, tracker.IsTyping("a1", "p1"))
	require.False(t, tracker.IsTyping("a1", "p2"))
	require.True(t, tracker.IsTyping("a2", "p1"))
}
