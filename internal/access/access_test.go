package access_test

import (
	"context"
	"errors"
	"testing"

	"Planora/internal/access"
	"Planora/internal/model"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeProjectStore implements access.ProjectStore over an in-memory map,
// mirroring the membership queries the Mongo repository performs.
type fakeProjectStore struct {
	projects map[string]*model.Project
	err      error
}

func newFakeStore(projects ...*model.Project) *fakeProjectStore {
	s := &fakeProjectStore{projects: make(map[string]*model.Project)}
	for _, p := range projects {
		s.projects[p.ID.Hex()] = p
	}
	return s
}

func (s *fakeProjectStore) GetProject(_ context.Context, projectID string) (*model.Project, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.projects[projectID], nil
}

func (s *fakeProjectStore) ListProjectIDs(_ context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	ids := make([]string, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeProjectStore) ListProjectIDsByManager(_ context.Context, actorID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	var ids []string
	for id, p := range s.projects {
		if p.HasManager(actorID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *fakeProjectStore) ListProjectIDsByClient(_ context.Context, actorID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	var ids []string
	for id, p := range s.projects {
		if p.ClientID == actorID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func newProject(clientID string, managerIDs ...string) *model.Project {
	return &model.Project{
		ID:         primitive.NewObjectID(),
		ClientID:   clientID,
		ManagerIDs: managerIDs,
		Status:     model.ProjectStatusActive,
	}
}

func TestResolver_ClientSeesOnlyOwnProjects(t *testing.T) {
	p1 := newProject("c1", "m1")
	p2 := newProject("c2", "m1")
	resolver := access.NewResolver(newFakeStore(p1, p2))

	ids, err := resolver.ResolveAccessibleProjectIDs(context.Background(),
		model.Identity{ActorID: "c1", Role: model.RoleClient})
	require.NoError(t, err)
	require.Equal(t, []string{p1.ID.Hex()}, ids)
}

func TestResolver_ManagerMembershipIsSetTest(t *testing.T) {
	p1 := newProject("c1", "m1", "m2")
	p2 := newProject("c1", "m2")
	p3 := newProject("c2", "m3")
	resolver := access.NewResolver(newFakeStore(p1, p2, p3))

	ids, err := resolver.ResolveAccessibleProjectIDs(context.Background(),
		model.Identity{ActorID: "m2", Role: model.RoleProjectManager})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{p1.ID.Hex(), p2.ID.Hex()}, ids)
}

func TestResolver_SuperAdminSeesEverything(t *testing.T) {
	p1 := newProject("c1", "m1")
	p2 := newProject("c2", "m2")
	resolver := access.NewResolver(newFakeStore(p1, p2))

	ids, err := resolver.ResolveAccessibleProjectIDs(context.Background(),
		model.Identity{ActorID: "root", Role: model.RoleSuperAdmin})
	require.NoError(t, err)
	require.Len(t, ids, 2)
}

func TestValidator_SuperAdminAllowedEverything(t *testing.T) {
	p := newProject("c1", "m1")
	v := access.NewValidator(newFakeStore(p), zap.NewNop())
	admin := model.Identity{ActorID: "root", Role: model.RoleSuperAdmin}

	for _, action := range []access.Action{access.ActionRead, access.ActionWrite, access.ActionDelete} {
		require.True(t, v.ValidatePermission(context.Background(), admin, p.ID.Hex(), action),
			"super admin denied %s", action)
	}
}

func TestValidator_ManagerNeverDeletes(t *testing.T) {
	p := newProject("c1", "m1", "m2")
	v := access.NewValidator(newFakeStore(p), zap.NewNop())
	manager := model.Identity{ActorID: "m2", Role: model.RoleProjectManager}

	require.True(t, v.ValidatePermission(context.Background(), manager, p.ID.Hex(), access.ActionRead))
	require.True(t, v.ValidatePermission(context.Background(), manager, p.ID.Hex(), access.ActionWrite))
	require.False(t, v.ValidatePermission(context.Background(), manager, p.ID.Hex(), access.ActionDelete))
}

func TestValidator_NonMemberManagerDenied(t *testing.T) {
	p := newProject("c1", "m1")
	v := access.NewValidator(newFakeStore(p), zap.NewNop())
	outsider := model.Identity{ActorID: "m9", Role: model.RoleProjectManager}

	require.False(t, v.ValidatePermission(context.Background(), outsider, p.ID.Hex(), access.ActionRead))
}

func TestValidator_ClientReadOnly(t *testing.T) {
	p := newProject("c1", "m1")
	v := access.NewValidator(newFakeStore(p), zap.NewNop())
	client := model.Identity{ActorID: "c1", Role: model.RoleClient}

	require.True(t, v.ValidatePermission(context.Background(), client, p.ID.Hex(), access.ActionRead))
	require.False(t, v.ValidatePermission(context.Background(), client, p.ID.Hex(), access.ActionWrite))
	require.False(t, v.ValidatePermission(context.Background(), client, p.ID.Hex(), access.ActionDelete))

	stranger := model.Identity{ActorID: "c2", Role: model.RoleClient}
	require.False(t, v.ValidatePermission(context.Background(), stranger, p.ID.Hex(), access.ActionRead))
}

func TestValidator_MalformedProjectIDDenied(t *testing.T) {
	v := access.NewValidator(newFakeStore(), zap.NewNop())

	// even a super admin cannot pass a garbage id through
	admin := model.Identity{ActorID: "root", Role: model.RoleSuperAdmin}
	require.False(t, v.ValidatePermission(context.Background(), admin, "not-an-object-id", access.ActionRead))
}

func TestValidator_MissingProjectFailsClosed(t *testing.T) {
	v := access.NewValidator(newFakeStore(), zap.NewNop())
	manager := model.Identity{ActorID: "m1", Role: model.RoleProjectManager}

	require.False(t, v.ValidatePermission(context.Background(), manager, primitive.NewObjectID().Hex(), access.ActionRead))
}

func TestValidator_StoreErrorFailsClosed(t *testing.T) {
	p := newProject("c1", "m1")
	store := newFakeStore(p)
	store.err = errors.New("store unavailable")
	v := access.NewValidator(store, zap.NewNop())
	manager := model.Identity{ActorID: "m1", Role: model.RoleProjectManager}

	require.False(t, v.ValidatePermission(context.Background(), manager, p.ID.Hex(), access.ActionRead))
}
