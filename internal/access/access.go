package access

import (
	"context"

	"Planora/internal/model"
)

// Action is the closed set of operations the permission validator rules on.
type Action int

const (
	ActionRead Action = iota
	ActionWrite
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionWrite:
		return "write"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ProjectStore is the slice of the document store the access layer needs:
// membership lookups only. Implemented by repo.ProjectRepository.
type ProjectStore interface {
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
	ListProjectIDs(ctx context.Context) ([]string, error)
	ListProjectIDsByManager(ctx context.Context, actorID string) ([]string, error)
	ListProjectIDsByClient(ctx context.Context, actorID string) ([]string, error)
}
