package hub

import (
	"sync"
	"time"

	"Planora/internal/event"
	"Planora/internal/model"
)

// typingTTL is how long a typing indicator lives without a refresh.
const typingTTL = 3000 * time.Millisecond

type typingKey struct {
	actorID   string
	projectID string
}

type typingEntry struct {
	state model.TypingState
	timer *time.Timer
}

// TypingTracker owns the self-expiring typing indicators. At most one
// entry exists per (actor, project); a refresh replaces the pending timer
// so a stale expiry can never fire after a fresher one.
type TypingTracker struct {
	notify func(event.TypingPayload)
	ttl    time.Duration

	mu      sync.Mutex
	entries map[typingKey]*typingEntry
	stopped bool
}

func NewTypingTracker(notify func(event.TypingPayload)) *TypingTracker {
	return &TypingTracker{
		notify:  notify,
		ttl:     typingTTL,
		entries: make(map[typingKey]*typingEntry),
	}
}

// StartTyping upserts the (actor, project) indicator and (re)arms its
// expiry timer.
func (t *TypingTracker) StartTyping(actorID, projectID string) {
	key := typingKey{actorID: actorID, projectID: projectID}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	if existing, ok := t.entries[key]; ok {
		existing.timer.Stop()
	}

	entry := &typingEntry{
		state: model.TypingState{
			ActorID:   actorID,
			ProjectID: projectID,
			IsTyping:  true,
			ExpiresAt: time.Now().Add(t.ttl),
		},
	}
	entry.timer = time.AfterFunc(t.ttl, func() {
		t.expire(key, entry)
	})
	t.entries[key] = entry
	t.mu.Unlock()

	t.notify(event.TypingPayload{ActorID: actorID, ProjectID: projectID, IsTyping: true})
}

// StopTyping removes the indicator and cancels its timer. Calling it for
// an absent entry is a no-op.
func (t *TypingTracker) StopTyping(actorID, projectID string) {
	key := typingKey{actorID: actorID, projectID: projectID}

	t.mu.Lock()
	entry, ok := t.entries[key]
	if ok {
		entry.timer.Stop()
		delete(t.entries, key)
	}
	t.mu.Unlock()

	if ok {
		t.notify(event.TypingPayload{ActorID: actorID, ProjectID: projectID, IsTyping: false})
	}
}

// StopAllForActor clears every indicator an actor holds; used when the
// actor's last session disconnects.
func (t *TypingTracker) StopAllForActor(actorID string) {
	t.mu.Lock()
	var cleared []typingKey
	for key, entry := range t.entries {
		if key.actorID == actorID {
			entry.timer.Stop()
			delete(t.entries, key)
			cleared = append(cleared, key)
		}
	}
	t.mu.Unlock()

	for _, key := range cleared {
		t.notify(event.TypingPayload{ActorID: key.actorID, ProjectID: key.projectID, IsTyping: false})
	}
}

// expire fires from the entry's timer. The entry identity check guards
// against the race where a refresh replaced the entry between the timer
// firing and the lock being taken.
func (t *TypingTracker) expire(key typingKey, entry *typingEntry) {
	t.mu.Lock()
	current, ok := t.entries[key]
	if !ok || current != entry {
		t.mu.Unlock()
		return
	}
	delete(t.entries, key)
	t.mu.Unlock()

	t.notify(event.TypingPayload{ActorID: key.actorID, ProjectID: key.projectID, IsTyping: false})
}

// IsTyping reports whether the (actor, project) indicator is live.
func (t *TypingTracker) IsTyping(actorID, projectID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[typingKey{actorID: actorID, projectID: projectID}]
	return ok
}

// Snapshot returns the live indicators for monitoring.
func (t *TypingTracker) Snapshot() []model.TypingState {
	t.mu.Lock()
	defer t.mu.Unlock()

	states := make([]model.TypingState, 0, len(t.entries))
	for _, entry := range t.entries {
		states = append(states, entry.state)
	}
	return states
}

// Stop cancels every pending timer. Used on hub shutdown.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	for key, entry := range t.entries {
		entry.timer.Stop()
		delete(t.entries, key)
	}
}
