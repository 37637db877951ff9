package repo

import (
	"context"
	"errors"

	"Planora/internal/db"
	"Planora/internal/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type ActorRepository interface {
	GetActor(ctx context.Context, actorID string) (*model.Actor, error)
}

type actorRepository struct {
	mongoRepo *db.Repository[model.Actor]
}

func NewActorRepository(repo *db.Repository[model.Actor]) ActorRepository {
	return &actorRepository{mongoRepo: repo}
}

// GetActor fetches an actor by its external id. Returns (nil, nil) when no
// such actor exists.
func (r *actorRepository) GetActor(ctx context.Context, actorID string) (*model.Actor, error) {
	if actorID == "" {
		return nil, ErrInvalidActorID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	actor, err := r.mongoRepo.FindOne(ctx, db.NewFilter().Eq("actor_id", actorID).Build())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return actor, nil
}
