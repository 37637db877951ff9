package model

import "time"

// Presence status constants
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// PresenceState is an actor's coarse online/offline status. Owned
// exclusively by the real-time layer, never persisted; last writer wins
// per actor.
type PresenceState struct {
	ActorID  string    `json:"actorId"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}

// TypingState is a self-expiring signal that an actor is composing input
// for a project. At most one entry exists per (actor, project) pair.
type TypingState struct {
	ActorID   string    `json:"actorId"`
	ProjectID string    `json:"projectId"`
	IsTyping  bool      `json:"isTyping"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ConnectionSession describes one live websocket session. A session is
// created on a successful handshake and destroyed on transport teardown.
type ConnectionSession struct {
	SessionID   string    `json:"sessionId"`
	ActorID     string    `json:"actorId"`
	Role        Role      `json:"role"`
	ConnectedAt time.Time `json:"connectedAt"`
}
