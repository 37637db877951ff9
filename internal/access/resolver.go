package access

import (
	"context"
	"fmt"

	"Planora/internal/model"
)

// Resolver computes the set of projects an actor may see. Every call is a
// fresh query against the store: membership can change between requests
// and a cached answer would leak projects to actors that lost access.
type Resolver struct {
	store ProjectStore
}

func NewResolver(store ProjectStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveAccessibleProjectIDs returns the project ids the actor is
// entitled to see. SuperAdmin sees everything, a manager sees projects
// whose manager set contains it, a client sees projects it owns.
func (r *Resolver) ResolveAccessibleProjectIDs(ctx context.Context, actor model.Identity) ([]string, error) {
	switch actor.Role {
	case model.RoleSuperAdmin:
		return r.store.ListProjectIDs(ctx)
	case model.RoleProjectManager:
		return r.store.ListProjectIDsByManager(ctx, actor.ActorID)
	case model.RoleClient:
		return r.store.ListProjectIDsByClient(ctx, actor.ActorID)
	default:
		return nil, fmt.Errorf("unhandled role %v", actor.Role)
	}
}
