package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Planora/internal/db"
	"Planora/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type NotificationRepository interface {
	Insert(ctx context.Context, n *model.Notification) (string, error)
	GetByID(ctx context.Context, id, recipientID string) (*model.Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, page, limit int64, unreadOnly bool) (*db.PaginatedResult[model.Notification], error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	SetRead(ctx context.Context, id, recipientID string, isRead bool) (*model.Notification, error)
	Delete(ctx context.Context, id, recipientID string) (wasUnread bool, err error)
}

type notificationRepository struct {
	mongoRepo *db.Repository[model.Notification]
	logger    *zap.Logger
}

func NewNotificationRepository(repo *db.Repository[model.Notification], logger *zap.Logger) NotificationRepository {
	return &notificationRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

func (r *notificationRepository) Insert(ctx context.Context, n *model.Notification) (string, error) {
	if n == nil {
		return "", ErrInvalidNotification
	}
	if n.RecipientID == "" {
		return "", ErrInvalidActorID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	result, err := r.mongoRepo.Create(ctx, *n)
	if err != nil {
		r.logger.Error("failed to insert notification",
			zap.String("recipient_id", n.RecipientID),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to insert notification: %w", err)
	}

	insertedID := ""
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		insertedID = oid.Hex()
	}

	r.logger.Info("notification inserted",
		zap.String("inserted_id", insertedID),
		zap.String("recipient_id", n.RecipientID),
		zap.String("type", n.Type),
	)
	return insertedID, nil
}

// GetByID fetches a notification scoped to its recipient: a notification
// is invisible to everyone except the actor it targets.
func (r *notificationRepository) GetByID(ctx context.Context, id, recipientID string) (*model.Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotificationNotFound
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	n, err := r.mongoRepo.FindOne(ctx, bson.M{"_id": objectID, "recipient_id": recipientID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to fetch notification: %w", err)
	}
	return n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, page, limit int64, unreadOnly bool) (*db.PaginatedResult[model.Notification], error) {
	if recipientID == "" {
		return nil, ErrInvalidActorID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("recipient_id", recipientID)
	if unreadOnly {
		filter.Eq("is_read", false)
	}

	result, err := r.mongoRepo.FindWithPagination(ctx, filter.Build(), db.PaginationParams{
		Page:     page,
		PageSize: limit,
		SortBy:   "created_at",
		SortDesc: true,
	})
	if err != nil {
		r.logger.Error("failed to list notifications",
			zap.String("recipient_id", recipientID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return result, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	return r.mongoRepo.Count(ctx, db.NewFilter().
		Eq("recipient_id", recipientID).
		Eq("is_read", false).
		Build())
}

// SetRead toggles the read flag. ReadAt is written together with IsRead in
// one update so the pair can never disagree: set on read, cleared on
// unread.
func (r *notificationRepository) SetRead(ctx context.Context, id, recipientID string, isRead bool) (*model.Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotificationNotFound
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	update := bson.M{"is_read": isRead}
	if isRead {
		update["read_at"] = time.Now()
	} else {
		update["read_at"] = nil
	}

	result, err := r.mongoRepo.Update(ctx, bson.M{"_id": objectID, "recipient_id": recipientID}, update)
	if err != nil {
		r.logger.Error("failed to update notification read state",
			zap.String("notification_id", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotificationNotFound
	}

	return r.GetByID(ctx, id, recipientID)
}

// Delete removes the notification permanently and reports whether it was
// still unread, so callers can adjust unread counters.
func (r *notificationRepository) Delete(ctx context.Context, id, recipientID string) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	n, err := r.GetByID(ctx, id, recipientID)
	if err != nil {
		return false, err
	}

	if _, err := r.mongoRepo.DeleteByID(ctx, id); err != nil {
		r.logger.Error("failed to delete notification",
			zap.String("notification_id", id),
			zap.Error(err),
		)
		return false, fmt.Errorf("failed to delete notification: %w", err)
	}

	r.logger.Info("notification deleted",
		zap.String("notification_id", id),
		zap.String("recipient_id", recipientID),
	)
	return !n.IsRead, nil
}
