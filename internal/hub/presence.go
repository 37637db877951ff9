package hub

import (
	"encoding/json"
	"sync"
	"time"

	"Planora/internal/event"
	"Planora/internal/model"
)

// PresenceTracker holds the in-memory online/offline state of every actor
// the hub has seen. State is owned exclusively by connection transitions
// and is last-writer-wins per actor; nothing here is persisted.
type PresenceTracker struct {
	hub *Hub

	mu     sync.RWMutex
	states map[string]model.PresenceState
}

func NewPresenceTracker(h *Hub) *PresenceTracker {
	return &PresenceTracker{
		hub:    h,
		states: make(map[string]model.PresenceState),
	}
}

// OnConnect marks the actor online and announces the transition. Called
// for every new session; repeated announcements for an already-online
// actor are harmless because observers apply last-writer-wins.
func (p *PresenceTracker) OnConnect(actorID string) {
	p.setStatus(actorID, model.PresenceOnline)
}

// OnDisconnect marks the actor offline. The hub only calls this when the
// actor's final session is gone.
func (p *PresenceTracker) OnDisconnect(actorID string) {
	p.setStatus(actorID, model.PresenceOffline)
}

func (p *PresenceTracker) setStatus(actorID, status string) {
	now := time.Now()

	p.mu.Lock()
	p.states[actorID] = model.PresenceState{
		ActorID:  actorID,
		Status:   status,
		LastSeen: now,
	}
	p.mu.Unlock()

	payload, _ := json.Marshal(event.StatusPayload{
		ActorID:  actorID,
		Status:   status,
		LastSeen: now.Unix(),
	})
	p.hub.broadcastAll(event.WsEvent{Event: event.EventUserStatusChange, Payload: payload})
}

// Get returns the actor's presence, defaulting to offline for actors the
// tracker has never seen.
func (p *PresenceTracker) Get(actorID string) model.PresenceState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if state, ok := p.states[actorID]; ok {
		return state
	}
	return model.PresenceState{ActorID: actorID, Status: model.PresenceOffline}
}

// Snapshot returns a copy of all known presence states.
func (p *PresenceTracker) Snapshot() []model.PresenceState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	states := make([]model.PresenceState, 0, len(p.states))
	for _, s := range p.states {
		states = append(states, s)
	}
	return states
}
