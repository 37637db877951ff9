package service_test

import (
	"context"
	"sync"
	"testing"

	"Planora/internal/access"
	"Planora/internal/db"
	"Planora/internal/model"
	"Planora/internal/repo"
	"Planora/internal/service"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeProjectRepo keeps the Mongo repository's semantics in memory:
// duplicate-free manager adds and an atomic last-manager guard on
// removal. It doubles as the access layer's ProjectStore.
type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*model.Project
}

func newFakeProjectRepo(projects ...*model.Project) *fakeProjectRepo {
	r := &fakeProjectRepo{projects: make(map[string]*model.Project)}
	for _, p := range projects {
		r.projects[p.ID.Hex()] = p
	}
	return r
}

func (r *fakeProjectRepo) GetProject(_ context.Context, projectID string) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return nil, nil
	}
	copied := *p
	copied.ManagerIDs = append([]string(nil), p.ManagerIDs...)
	return &copied, nil
}

func (r *fakeProjectRepo) ListProjectIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.projects))
	for id := range r.projects {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeProjectRepo) ListProjectIDsByManager(_ context.Context, actorID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, p := range r.projects {
		if p.HasManager(actorID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeProjectRepo) ListProjectIDsByClient(_ context.Context, actorID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, p := range r.projects {
		if p.ClientID == actorID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeProjectRepo) AddManager(_ context.Context, projectID, managerID string) error {
	if managerID == "" {
		return repo.ErrInvalidActorID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[projectID]
	if !ok {
		return repo.ErrProjectNotFound
	}
	if !p.HasManager(managerID) {
		p.ManagerIDs = append(p.ManagerIDs, managerID)
	}
	return nil
}

func (r *fakeProjectRepo) RemoveManager(_ context.Context, projectID, managerID string) error {
	if managerID == "" {
		return repo.ErrInvalidActorID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[projectID]
	if !ok {
		return repo.ErrProjectNotFound
	}
	if !p.HasManager(managerID) {
		return repo.ErrManagerNotInProject
	}
	if len(p.ManagerIDs) == 1 {
		return repo.ErrLastManager
	}
	kept := p.ManagerIDs[:0]
	for _, id := range p.ManagerIDs {
		if id != managerID {
			kept = append(kept, id)
		}
	}
	p.ManagerIDs = kept
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string][]model.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string][]model.Message)}
}

func (r *fakeMessageRepo) InsertMessage(_ context.Context, msg *model.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := msg.ProjectID.Hex()
	r.messages[key] = append(r.messages[key], *msg)
	return msg.MessageID, nil
}

func (r *fakeMessageRepo) ListByProject(_ context.Context, projectID string, page int64) (*db.PaginatedResult[model.Message], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[projectID]
	return &db.PaginatedResult[model.Message]{
		Data:  append([]model.Message(nil), msgs...),
		Total: int64(len(msgs)),
		Page:  page,
	}, nil
}

type projectFixture struct {
	svc         service.ProjectService
	projectRepo *fakeProjectRepo
	messageRepo *fakeMessageRepo
	notifRepo   *fakeNotificationRepo
	broadcaster *fakeBroadcaster
}

func newProjectFixture(t *testing.T, projects ...*model.Project) *projectFixture {
	t.Helper()

	projectRepo := newFakeProjectRepo(projects...)
	messageRepo := newFakeMessageRepo()
	notifRepo := &fakeNotificationRepo{}
	broadcaster := newFakeBroadcaster()
	logger := zap.NewNop()

	notifications := service.NewNotificationService(notifRepo, broadcaster, logger)
	svc := service.NewProjectService(
		projectRepo,
		messageRepo,
		access.NewResolver(projectRepo),
		access.NewValidator(projectRepo, logger),
		notifications,
		broadcaster,
		logger,
	)

	return &projectFixture{
		svc:         svc,
		projectRepo: projectRepo,
		messageRepo: messageRepo,
		notifRepo:   notifRepo,
		broadcaster: broadcaster,
	}
}

func activeProject(clientID string, managerIDs ...string) *model.Project {
	return &model.Project{
		ID:         primitive.NewObjectID(),
		Title:      "project",
		ClientID:   clientID,
		ManagerIDs: managerIDs,
		Status:     model.ProjectStatusActive,
	}
}

func admin() model.Identity {
	return model.Identity{ActorID: "root", Role: model.RoleSuperAdmin}
}

func TestProjectService_AccessibleProjectIDsNeverNil(t *testing.T) {
	f := newProjectFixture(t)

	ids, err := f.svc.AccessibleProjectIDs(context.Background(),
		model.Identity{ActorID: "c1", Role: model.RoleClient})
	require.NoError(t, err)
	require.NotNil(t, ids)
	require.Empty(t, ids)
}

func TestProjectService_ProjectMessagesRequiresRead(t *testing.T) {
	p := activeProject("c1", "m1")
	f := newProjectFixture(t, p)

	outsider := model.Identity{ActorID: "c2", Role: model.RoleClient}
	_, err := f.svc.ProjectMessages(context.Background(), outsider, p.ID.Hex(), 1)
	require.ErrorIs(t, err, service.ErrForbidden)

	owner := model.Identity{ActorID: "c1", Role: model.RoleClient}
	page, err := f.svc.ProjectMessages(context.Background(), owner, p.ID.Hex(), 1)
	require.NoError(t, err)
	require.Empty(t, page.Data)
}

func TestProjectService_AddManagerRequiresWrite(t *testing.T) {
	p := activeProject("c1", "m1")
	f := newProjectFixture(t, p)

	// clients hold read-only access, membership writes are out of reach
	client := model.Identity{ActorID: "c1", Role: model.RoleClient}
	err := f.svc.AddManager(context.Background(), client, p.ID.Hex(), "m2")
	require.ErrorIs(t, err, service.ErrForbidden)

	err = f.svc.AddManager(context.Background(), admin(), p.ID.Hex(), "m2")
	require.NoError(t, err)

	stored, err := f.projectRepo.GetProject(context.Background(), p.ID.Hex())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"m1", "m2"}, stored.ManagerIDs)
}

func TestProjectService_AddManagerIsIdempotent(t *testing.T) {
	p := activeProject("c1", "m1")
	f := newProjectFixture(t, p)

	require.NoError(t, f.svc.AddManager(context.Background(), admin(), p.ID.Hex(), "m2"))
	require.NoError(t, f.svc.AddManager(context.Background(), admin(), p.ID.Hex(), "m2"))

	stored, err := f.projectRepo.GetProject(context.Background(), p.ID.Hex())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"m1", "m2"}, stored.ManagerIDs)
}

func TestProjectService_AddManagerNotifiesNewManager(t *testing.T) {
	p := activeProject("c1", "m1")
	f := newProjectFixture(t, p)

	require.NoError(t, f.svc.AddManager(context.Background(), admin(), p.ID.Hex(), "m2"))

	unread, err := f.notifRepo.CountUnread(context.Background(), "m2")
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)
}

func TestProjectService_RemoveManagerEvictsFromRoom(t *testing.T) {
	p := activeProject("c1", "m1", "m2")
	f := newProjectFixture(t, p)

	err := f.svc.RemoveManager(context.Background(), admin(), p.ID.Hex(), "m2")
	require.NoError(t, err)

	stored, err := f.projectRepo.GetProject(context.Background(), p.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, []string{"m1"}, stored.ManagerIDs)
	require.Equal(t, []string{p.ID.Hex() + "/m2"}, f.broadcaster.evictions)
}

func TestProjectService_RemoveLastManagerRejected(t *testing.T) {
	p := activeProject("c1", "m1")
	f := newProjectFixture(t, p)

	err := f.svc.RemoveManager(context.Background(), admin(), p.ID.Hex(), "m1")
	require.ErrorIs(t, err, repo.ErrLastManager)

	// the set is untouched and no eviction happened
	stored, getErr := f.projectRepo.GetProject(context.Background(), p.ID.Hex())
	require.NoError(t, getErr)
	require.Equal(t, []string{"m1"}, stored.ManagerIDs)
	require.Empty(t, f.broadcaster.evictions)
}

func TestProjectService_RemoveUnknownManager(t *testing.T) {
	p := activeProject("c1", "m1", "m2")
	f := newProjectFixture(t, p)

	err := f.svc.RemoveManager(context.Background(), admin(), p.ID.Hex(), "ghost")
	require.ErrorIs(t, err, repo.ErrManagerNotInProject)
	require.Empty(t, f.broadcaster.evictions)
}

func TestProjectService_RemoveManagerRequiresWrite(t *testing.T) {
	p := activeProject("c1", "m1", "m2")
	f := newProjectFixture(t, p)

	outsider := model.Identity{ActorID: "m9", Role: model.RoleProjectManager}
	err := f.svc.RemoveManager(context.Background(), outsider, p.ID.Hex(), "m2")
	require.ErrorIs(t, err, service.ErrForbidden)
}
