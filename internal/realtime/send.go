package realtime

import (
	"encoding/json"
	"errors"

	"Planora/internal/event"
)

// ErrNotConnected is returned when an event is submitted while the
// stream is down. Callers surface this as a non-blocking offline
// indicator, never as a crash.
var ErrNotConnected = errors.New("realtime: not connected")

func (m *Manager) send(eventName string, payload interface{}) error {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = b
	}

	return conn.WriteJSON(event.WsEvent{Event: eventName, Payload: raw})
}

// JoinProject attaches this session to a project's room.
func (m *Manager) JoinProject(projectID string) error {
	return m.send(event.EventJoinProject, event.RoomPayload{ProjectID: projectID})
}

// LeaveProject detaches this session from a project's room.
func (m *Manager) LeaveProject(projectID string) error {
	return m.send(event.EventLeaveProject, event.RoomPayload{ProjectID: projectID})
}

// StartTyping signals (or refreshes) a typing indicator for a project.
func (m *Manager) StartTyping(projectID string) error {
	return m.send(event.EventTyping, event.TypingPayload{ProjectID: projectID, IsTyping: true})
}

// StopTyping clears the typing indicator for a project.
func (m *Manager) StopTyping(projectID string) error {
	return m.send(event.EventStopTyping, event.TypingPayload{ProjectID: projectID})
}

// SendMessage submits a chat message to a project's room.
func (m *Manager) SendMessage(msg event.MessagePayload) error {
	return m.send(event.EventSendMessage, msg)
}

// MarkNotificationRead toggles a notification's read flag from this
// session; the server mirrors the change to the actor's other sessions.
func (m *Manager) MarkNotificationRead(notificationID string, isRead bool) error {
	return m.send(event.EventMarkNotificationRead, event.NotificationReadPayload{
		NotificationID: notificationID,
		IsRead:         isRead,
	})
}

// SubmitProjectUpdate broadcasts a project change to the room.
func (m *Manager) SubmitProjectUpdate(p event.UpdatePayload) error {
	return m.send(event.EventProjectUpdate, p)
}

// SubmitTaskUpdate broadcasts a task change to the room.
func (m *Manager) SubmitTaskUpdate(p event.UpdatePayload) error {
	return m.send(event.EventTaskUpdate, p)
}

// SubmitFileUploaded announces a completed upload to the room.
func (m *Manager) SubmitFileUploaded(p event.UpdatePayload) error {
	return m.send(event.EventFileUploaded, p)
}
