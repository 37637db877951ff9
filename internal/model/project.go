package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project status constants
const (
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusArchived  = "archived"
)

// Project represents a project document in MongoDB. ManagerIDs is never
// empty: removal of the last manager is rejected at the service layer.
type Project struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	ClientID    string             `json:"clientId" bson:"client_id"`
	ManagerIDs  []string           `json:"managerIds" bson:"manager_ids"`
	Status      string             `json:"status" bson:"status"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}

// HasManager reports whether actorID is in the manager set.
func (p *Project) HasManager(actorID string) bool {
	for _, id := range p.ManagerIDs {
		if id == actorID {
			return true
		}
	}
	return false
}

// Message represents a persisted project chat message in MongoDB.
type Message struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MessageID string             `json:"messageId" bson:"message_id"`
	ProjectID primitive.ObjectID `json:"projectId" bson:"project_id"`
	SenderID  string             `json:"senderId" bson:"sender_id"`
	Body      string             `json:"body" bson:"body"`
	FileURL   *string            `json:"fileUrl" bson:"file_url"`
	ReplyTo   *string            `json:"replyTo" bson:"reply_to"`
	Mentions  []string           `json:"mentions" bson:"mentions"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
	EditedAt  *time.Time         `json:"editedAt" bson:"edited_at"`
}
