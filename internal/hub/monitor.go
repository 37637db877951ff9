package hub

import (
	"time"

	"Planora/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	connectionStats, sessions := ms.getConnectionStats()
	roomStats := ms.getRoomStats()
	typingStats := ms.getTypingStats()

	status := "healthy"
	if connectionStats.TotalSessions == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: connectionStats,
		Rooms:       roomStats,
		Typing:      typingStats,
		Sessions:    sessions,
	}
}

func (ms *MonitorService) getConnectionStats() (model.ConnectionStats, []model.SessionInfo) {
	ms.hub.sessionsMu.RLock()
	defer ms.hub.sessionsMu.RUnlock()

	stats := model.ConnectionStats{
		TotalActors: len(ms.hub.sessions),
	}

	sessions := make([]model.SessionInfo, 0)
	for _, byActor := range ms.hub.sessions {
		for _, client := range byActor {
			stats.TotalSessions++
			sessions = append(sessions, model.SessionInfo{
				SessionID:   client.ID,
				ActorID:     client.actorID,
				Role:        client.role.String(),
				ConnectedAt: client.connectedAt.Format(time.RFC3339),
			})
		}
	}

	return stats, sessions
}

func (ms *MonitorService) getRoomStats() model.RoomStats {
	stats := model.RoomStats{
		RoomDetails: make([]model.RoomInfo, 0),
	}

	// Iterate through all shards to collect room info
	for _, bucket := range ms.hub.shards {
		bucket.RLock()
		for projectID, room := range bucket.rooms {
			seen := make(map[string]struct{})
			actorIDs := make([]string, 0, len(room))
			for _, client := range room {
				if _, ok := seen[client.actorID]; ok {
					continue
				}
				seen[client.actorID] = struct{}{}
				actorIDs = append(actorIDs, client.actorID)
			}

			stats.RoomDetails = append(stats.RoomDetails, model.RoomInfo{
				ProjectID:     projectID,
				TotalSessions: len(room),
				ActorIDs:      actorIDs,
			})
			stats.TotalRooms++
		}
		bucket.RUnlock()
	}

	return stats
}

func (ms *MonitorService) getTypingStats() model.TypingStats {
	indicators := ms.hub.typing.Snapshot()
	return model.TypingStats{
		ActiveIndicators: len(indicators),
		Indicators:       indicators,
	}
}

// Presence returns the tracker's current view for the monitor API.
func (ms *MonitorService) Presence() []model.PresenceState {
	return ms.hub.presence.Snapshot()
}
