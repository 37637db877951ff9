package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"` // "healthy", "idle"
	Connections ConnectionStats `json:"connections"`
	Rooms       RoomStats       `json:"rooms"`
	Typing      TypingStats     `json:"typing"`
	Sessions    []SessionInfo   `json:"sessions"`
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	TotalSessions int `json:"totalSessions"` // All live websocket sessions
	TotalActors   int `json:"totalActors"`   // Distinct actors with at least one session
}

// RoomStats holds project room statistics
type RoomStats struct {
	TotalRooms  int        `json:"totalRooms"`
	RoomDetails []RoomInfo `json:"roomDetails"`
}

// RoomInfo contains information about a single project room
type RoomInfo struct {
	ProjectID     string   `json:"projectId"`
	TotalSessions int      `json:"totalSessions"`
	ActorIDs      []string `json:"actorIds"`
}

// TypingStats holds active typing-indicator statistics
type TypingStats struct {
	ActiveIndicators int           `json:"activeIndicators"`
	Indicators       []TypingState `json:"indicators"`
}

// SessionInfo contains information about a connected session
type SessionInfo struct {
	SessionID   string `json:"sessionId"`
	ActorID     string `json:"actorId"`
	Role        string `json:"role"`
	ConnectedAt string `json:"connectedAt"` // ISO timestamp
}
