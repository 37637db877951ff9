package event

import "encoding/json"

// Event Types - Client to Server
const (
	// EventJoinProject - session asks to join a project room
	EventJoinProject = "join_project"

	// EventLeaveProject - session detaches from a project room
	EventLeaveProject = "leave_project"

	// EventTyping - actor started (or refreshed) typing in a project
	EventTyping = "typing"

	// EventStopTyping - actor explicitly stopped typing
	EventStopTyping = "stop_typing"

	// EventSendMessage - actor submits a chat message for a project
	EventSendMessage = "send_message"

	// EventMarkNotificationRead - actor toggled a notification's read flag
	EventMarkNotificationRead = "mark_notification_read"

	// EventProjectUpdate - broadcast submission for a project change
	EventProjectUpdate = "project_update"

	// EventTaskUpdate - broadcast submission for a task change
	EventTaskUpdate = "task_update"

	// EventFileUploaded - broadcast submission for a completed upload
	EventFileUploaded = "file_uploaded"
)

// Event Types - Server to Client
const (
	// EventUserStatusChange - an actor's presence flipped online/offline
	EventUserStatusChange = "user_status_change"

	// EventUserTyping - typing indicator for a project room
	EventUserTyping = "user_typing"

	// EventNewMessage - chat message delivered to a project room
	EventNewMessage = "new_message"

	// EventNewNotification - notification pushed to its recipient
	EventNewNotification = "new_notification"

	// EventProjectUpdated - project change delivered to a room
	EventProjectUpdated = "project_updated"

	// EventTaskUpdated - task change delivered to a room
	EventTaskUpdated = "task_updated"

	// EventNewFile - upload announcement delivered to a room
	EventNewFile = "new_file"

	// EventError - per-event error surfaced back to the submitting session
	EventError = "error"
)

// WsEvent is the envelope every websocket frame carries in both
// directions. Payload stays raw until the event name selects a type.
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RoomPayload names the project room an event targets.
type RoomPayload struct {
	ProjectID string `json:"projectId"`
}

// TypingPayload is sent for typing/stop_typing and fanned back out as
// user_typing.
type TypingPayload struct {
	ActorID   string `json:"actorId,omitempty"`
	ProjectID string `json:"projectId"`
	IsTyping  bool   `json:"isTyping"`
}

// StatusPayload is fanned out as user_status_change.
type StatusPayload struct {
	ActorID  string `json:"actorId"`
	Status   string `json:"status"`
	LastSeen int64  `json:"lastSeen"` // Unix timestamp
}

// MessagePayload is submitted with send_message and delivered as
// new_message.
type MessagePayload struct {
	ProjectID string   `json:"projectId"`
	SenderID  string   `json:"senderId,omitempty"`
	Body      string   `json:"body"`
	FileURL   *string  `json:"fileUrl,omitempty"`
	ReplyTo   *string  `json:"replyTo,omitempty"`
	Mentions  []string `json:"mentions,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// UpdatePayload is submitted with project_update / task_update /
// file_uploaded and delivered as the corresponding server event. Detail
// stays opaque to the router; only the room scope matters here.
type UpdatePayload struct {
	ProjectID string          `json:"projectId"`
	ActorID   string          `json:"actorId,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// NotificationReadPayload mirrors a read/unread toggle across the
// recipient's other live sessions.
type NotificationReadPayload struct {
	NotificationID string `json:"notificationId"`
	IsRead         bool   `json:"isRead"`
}

// ErrorPayload is sent back to a session whose submission was rejected.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for ErrorPayload
const (
	ErrCodeForbidden  = "forbidden"
	ErrCodeBadPayload = "bad_payload"
	ErrCodeInternal   = "internal"
)
