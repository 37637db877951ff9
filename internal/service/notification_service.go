package service

import (
	"context"
	"encoding/json"

	"Planora/internal/event"
	"Planora/internal/model"
	"Planora/internal/repo"

	"go.uber.org/zap"
)

// Broadcaster is the slice of the hub the services push through.
// Implemented by hub.Hub.
type Broadcaster interface {
	SendToActor(actorID string, ev event.WsEvent) bool
	SendToActorExcept(actorID, excludeSessionID string, ev event.WsEvent) bool
	IsActorConnected(actorID string) bool
	EvictFromRoom(projectID, actorID string)
}

// NotificationList is one page of a recipient's notifications plus the
// running unread count.
type NotificationList struct {
	Data        []model.Notification `json:"data"`
	UnreadCount int64                `json:"unreadCount"`
	Pagination  Pagination           `json:"pagination"`
}

type Pagination struct {
	Page       int64 `json:"page"`
	Limit      int64 `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
}

type NotificationService interface {
	Create(ctx context.Context, n *model.Notification) (*model.Notification, error)
	List(ctx context.Context, recipientID string, page, limit int64, unreadOnly bool) (*NotificationList, error)
	MarkRead(ctx context.Context, notificationID, recipientID string, isRead bool, excludeSessionID string) (*model.Notification, error)
	Delete(ctx context.Context, notificationID, recipientID string) (bool, error)
}

type notificationService struct {
	notificationRepo repo.NotificationRepository
	broadcaster      Broadcaster
	logger           *zap.Logger
}

func NewNotificationService(notificationRepo repo.NotificationRepository, broadcaster Broadcaster, logger *zap.Logger) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		broadcaster:      broadcaster,
		logger:           logger,
	}
}

// Create persists the notification, then attempts live delivery. A
// recipient with no session, or a session that refuses the event, is not
// an error: the record is durable and the client reconciles on its next
// REST refresh.
func (s *notificationService) Create(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	if n != nil {
		// a new notification is always unread
		n.IsRead = false
		n.ReadAt = nil
	}

	id, err := s.notificationRepo.Insert(ctx, n)
	if err != nil {
		return nil, err
	}

	created, err := s.notificationRepo.GetByID(ctx, id, n.RecipientID)
	if err != nil {
		return nil, err
	}

	if s.broadcaster.IsActorConnected(created.RecipientID) {
		payload, _ := json.Marshal(created)
		if !s.broadcaster.SendToActor(created.RecipientID, event.WsEvent{
			Event:   event.EventNewNotification,
			Payload: payload,
		}) {
			s.logger.Debug("live notification delivery failed, record remains queryable",
				zap.String("notification_id", id),
				zap.String("recipient_id", created.RecipientID),
			)
		}
	}

	return created, nil
}

func (s *notificationService) List(ctx context.Context, recipientID string, page, limit int64, unreadOnly bool) (*NotificationList, error) {
	result, err := s.notificationRepo.ListByRecipient(ctx, recipientID, page, limit, unreadOnly)
	if err != nil {
		return nil, err
	}

	unread, err := s.notificationRepo.CountUnread(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	return &NotificationList{
		Data:        orEmpty(result.Data),
		UnreadCount: unread,
		Pagination: Pagination{
			Page:       result.Page,
			Limit:      result.PageSize,
			Total:      result.Total,
			TotalPages: result.TotalPages,
			HasNext:    result.HasNext,
		},
	}, nil
}

// MarkRead toggles the read flag and mirrors the change to the
// recipient's other live sessions so every open tab converges without an
// extra network round-trip.
func (s *notificationService) MarkRead(ctx context.Context, notificationID, recipientID string, isRead bool, excludeSessionID string) (*model.Notification, error) {
	updated, err := s.notificationRepo.SetRead(ctx, notificationID, recipientID, isRead)
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(event.NotificationReadPayload{
		NotificationID: notificationID,
		IsRead:         isRead,
	})
	s.broadcaster.SendToActorExcept(recipientID, excludeSessionID, event.WsEvent{
		Event:   event.EventMarkNotificationRead,
		Payload: payload,
	})

	return updated, nil
}

// Delete removes the notification permanently and reports whether it was
// unread so the caller can decrement its local counter.
func (s *notificationService) Delete(ctx context.Context, notificationID, recipientID string) (bool, error) {
	return s.notificationRepo.Delete(ctx, notificationID, recipientID)
}

func orEmpty(data []model.Notification) []model.Notification {
	if data == nil {
		return []model.Notification{}
	}
	return data
}
