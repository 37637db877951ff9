package access

import (
	"context"

	"Planora/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Validator answers allow/deny for (actor, project, action). It never
// returns an error: any failure during the decision, including the store
// being unreachable, resolves to deny.
type Validator struct {
	store  ProjectStore
	logger *zap.Logger
}

func NewValidator(store ProjectStore, logger *zap.Logger) *Validator {
	return &Validator{store: store, logger: logger}
}

// ValidatePermission reports whether the actor may perform action on the
// project. Malformed project ids are denied before any role shortcut so a
// garbage id can never slip through, SuperAdmin included.
func (v *Validator) ValidatePermission(ctx context.Context, actor model.Identity, projectID string, action Action) bool {
	if _, err := primitive.ObjectIDFromHex(projectID); err != nil {
		return false
	}

	if actor.Role == model.RoleSuperAdmin {
		return true
	}

	project, err := v.store.GetProject(ctx, projectID)
	if err != nil {
		v.logger.Warn("permission check failed to load project, denying",
			zap.String("project_id", projectID),
			zap.String("actor_id", actor.ActorID),
			zap.Error(err),
		)
		return false
	}
	if project == nil {
		return false
	}

	switch actor.Role {
	case model.RoleProjectManager:
		// Managers read and write but never delete.
		return project.HasManager(actor.ActorID) && (action == ActionRead || action == ActionWrite)
	case model.RoleClient:
		return project.ClientID == actor.ActorID && action == ActionRead
	default:
		return false
	}
}
