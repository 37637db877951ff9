package service

import (
	"context"
	"fmt"

	"Planora/internal/access"
	"Planora/internal/db"
	"Planora/internal/model"
	"Planora/internal/repo"

	"go.uber.org/zap"
)

var ErrForbidden = fmt.Errorf("forbidden")

type ProjectService interface {
	AccessibleProjectIDs(ctx context.Context, actor model.Identity) ([]string, error)
	ProjectMessages(ctx context.Context, actor model.Identity, projectID string, page int64) (*db.PaginatedResult[model.Message], error)
	AddManager(ctx context.Context, actor model.Identity, projectID, managerID string) error
	RemoveManager(ctx context.Context, actor model.Identity, projectID, managerID string) error
}

type projectService struct {
	projectRepo   repo.ProjectRepository
	messageRepo   repo.MessageRepository
	resolver      *access.Resolver
	validator     *access.Validator
	notifications NotificationService
	broadcaster   Broadcaster
	logger        *zap.Logger
}

func NewProjectService(
	projectRepo repo.ProjectRepository,
	messageRepo repo.MessageRepository,
	resolver *access.Resolver,
	validator *access.Validator,
	notifications NotificationService,
	broadcaster Broadcaster,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		projectRepo:   projectRepo,
		messageRepo:   messageRepo,
		resolver:      resolver,
		validator:     validator,
		notifications: notifications,
		broadcaster:   broadcaster,
		logger:        logger,
	}
}

func (s *projectService) AccessibleProjectIDs(ctx context.Context, actor model.Identity) ([]string, error) {
	ids, err := s.resolver.ResolveAccessibleProjectIDs(ctx, actor)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// ProjectMessages returns a page of the project's message history after a
// read check on the calling actor.
func (s *projectService) ProjectMessages(ctx context.Context, actor model.Identity, projectID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if !s.validator.ValidatePermission(ctx, actor, projectID, access.ActionRead) {
		return nil, ErrForbidden
	}
	return s.messageRepo.ListByProject(ctx, projectID, page)
}

// AddManager adds an actor to a project's manager set. Only actors with
// write access on the project may change its membership. The new manager
// gets a notification (and a live push if connected).
func (s *projectService) AddManager(ctx context.Context, actor model.Identity, projectID, managerID string) error {
	if !s.validator.ValidatePermission(ctx, actor, projectID, access.ActionWrite) {
		return ErrForbidden
	}

	if err := s.projectRepo.AddManager(ctx, projectID, managerID); err != nil {
		return err
	}

	senderID := actor.ActorID
	if _, err := s.notifications.Create(ctx, &model.Notification{
		RecipientID: managerID,
		SenderID:    &senderID,
		Type:        model.NotificationTypeProjectUpdate,
		Title:       "Added to project",
		Message:     "You were added as a manager",
		Data:        model.NotificationData{ProjectID: projectID},
		Priority:    model.PriorityMedium,
		Category:    model.CategoryInfo,
	}); err != nil {
		// membership change already committed; the notification is
		// best-effort
		s.logger.Warn("failed to notify new manager",
			zap.String("project_id", projectID),
			zap.String("manager_id", managerID),
			zap.Error(err),
		)
	}

	return nil
}

// RemoveManager pulls an actor from a project's manager set. The store
// rejects removal of the last manager. On success the removed manager's
// live sessions are evicted from the project room: a subscription must
// not outlive the membership it was granted under.
func (s *projectService) RemoveManager(ctx context.Context, actor model.Identity, projectID, managerID string) error {
	if !s.validator.ValidatePermission(ctx, actor, projectID, access.ActionWrite) {
		return ErrForbidden
	}

	if err := s.projectRepo.RemoveManager(ctx, projectID, managerID); err != nil {
		return err
	}

	s.broadcaster.EvictFromRoom(projectID, managerID)
	s.logger.Info("manager removed and evicted from room",
		zap.String("project_id", projectID),
		zap.String("manager_id", managerID),
	)
	return nil
}
