package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification priority levels
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Notification categories
const (
	CategoryInfo    = "info"
	CategorySuccess = "success"
	CategoryWarning = "warning"
	CategoryError   = "error"
)

// Notification types
const (
	NotificationTypeMessage       = "new_message"
	NotificationTypeProjectUpdate = "project_update"
	NotificationTypeTaskUpdate    = "task_update"
	NotificationTypeFileUpload    = "file_uploaded"
	NotificationTypeSystem        = "system"
)

// NotificationData is the structured payload attached to a notification.
// All fields are optional; whichever entity the notification references
// is filled in.
type NotificationData struct {
	ProjectID string `json:"projectId,omitempty" bson:"project_id,omitempty"`
	TaskID    string `json:"taskId,omitempty" bson:"task_id,omitempty"`
	MessageID string `json:"messageId,omitempty" bson:"message_id,omitempty"`
	FileID    string `json:"fileId,omitempty" bson:"file_id,omitempty"`
	URL       string `json:"url,omitempty" bson:"url,omitempty"`
}

// Notification represents a notification document in MongoDB.
// ReadAt is non-nil exactly when IsRead is true; toggling IsRead back to
// false clears it. Only the recipient may mutate a notification after
// creation.
type Notification struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RecipientID string             `json:"recipientId" bson:"recipient_id"`
	SenderID    *string            `json:"senderId" bson:"sender_id"`
	Type        string             `json:"type" bson:"type"`
	Title       string             `json:"title" bson:"title"`
	Message     string             `json:"message" bson:"message"`
	Data        NotificationData   `json:"data" bson:"data"`
	IsRead      bool               `json:"isRead" bson:"is_read"`
	ReadAt      *time.Time         `json:"readAt" bson:"read_at"`
	Priority    string             `json:"priority" bson:"priority"`
	Category    string             `json:"category" bson:"category"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
}
