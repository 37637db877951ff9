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

type ProjectRepository interface {
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
	ListProjectIDs(ctx context.Context) ([]string, error)
	ListProjectIDsByManager(ctx context.Context, actorID string) ([]string, error)
	ListProjectIDsByClient(ctx context.Context, actorID string) ([]string, error)
	AddManager(ctx context.Context, projectID, managerID string) error
	RemoveManager(ctx context.Context, projectID, managerID string) error
}

type projectRepository struct {
	mongoRepo *db.Repository[model.Project]
	logger    *zap.Logger
}

func NewProjectRepository(repo *db.Repository[model.Project], logger *zap.Logger) ProjectRepository {
	return &projectRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// GetProject fetches a project by ID. Returns (nil, nil) when the project
// does not exist; the access layer treats that as deny, the REST layer as
// 404.
func (r *projectRepository) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	if projectID == "" {
		return nil, ErrInvalidProjectID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	project, err := r.mongoRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("failed to fetch project",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to fetch project: %w", err)
	}

	return project, nil
}

// ListProjectIDs returns every project id in the store.
func (r *projectRepository) ListProjectIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, db.Empty())
}

// ListProjectIDsByManager returns ids of projects whose manager set
// contains the actor. Mongo's array equality gives the membership test.
func (r *projectRepository) ListProjectIDsByManager(ctx context.Context, actorID string) ([]string, error) {
	if actorID == "" {
		return nil, ErrInvalidActorID
	}
	return r.listIDs(ctx, db.NewFilter().Eq("manager_ids", actorID).Build())
}

// ListProjectIDsByClient returns ids of projects owned by the client.
func (r *projectRepository) ListProjectIDsByClient(ctx context.Context, actorID string) ([]string, error) {
	if actorID == "" {
		return nil, ErrInvalidActorID
	}
	return r.listIDs(ctx, db.NewFilter().Eq("client_id", actorID).Build())
}

func (r *projectRepository) listIDs(ctx context.Context, filter bson.M) ([]string, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	projects, err := r.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		r.logger.Error("failed to list projects", zap.Error(err))
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID.Hex())
	}
	return ids, nil
}

// AddManager adds an actor to the project's manager set. $addToSet keeps
// the set duplicate-free regardless of how many times the same manager is
// added.
func (r *projectRepository) AddManager(ctx context.Context, projectID, managerID string) error {
	if managerID == "" {
		return ErrInvalidActorID
	}
	objectID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return ErrInvalidProjectID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := r.mongoRepo.UpdateRaw(ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$addToSet": bson.M{"manager_ids": managerID},
			"$set":      bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		r.logger.Error("failed to add manager",
			zap.String("project_id", projectID),
			zap.String("manager_id", managerID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to add manager: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProjectNotFound
	}

	r.logger.Info("manager added to project",
		zap.String("project_id", projectID),
		zap.String("manager_id", managerID),
	)
	return nil
}

// RemoveManager pulls an actor from the project's manager set. The filter
// requires a second manager to exist at match time, so the update is an
// atomic no-op when it would empty the set; the slow path below only
// classifies the failure.
func (r *projectRepository) RemoveManager(ctx context.Context, projectID, managerID string) error {
	if managerID == "" {
		return ErrInvalidActorID
	}
	objectID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return ErrInvalidProjectID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := r.mongoRepo.UpdateRaw(ctx,
		bson.M{
			"_id":           objectID,
			"manager_ids":   managerID,
			"manager_ids.1": bson.M{"$exists": true},
		},
		bson.M{
			"$pull": bson.M{"manager_ids": managerID},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		r.logger.Error("failed to remove manager",
			zap.String("project_id", projectID),
			zap.String("manager_id", managerID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to remove manager: %w", err)
	}
	if result.MatchedCount > 0 {
		r.logger.Info("manager removed from project",
			zap.String("project_id", projectID),
			zap.String("manager_id", managerID),
		)
		return nil
	}

	// The guarded update matched nothing; find out why.
	project, err := r.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return ErrProjectNotFound
	}
	if !project.HasManager(managerID) {
		return ErrManagerNotInProject
	}
	return ErrLastManager
}

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
