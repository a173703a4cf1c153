package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"loansphere/internal/adapters/persistence/models"
	"loansphere/internal/adapters/persistence/repositories"
	"loansphere/internal/core/domain"
	"loansphere/internal/eventbus"
	"loansphere/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uint]models.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]models.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.users {
		user := f.users[id]
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for id := range f.users {
		user := f.users[id]
		out = append(out, &user)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) ListPendingAgents(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for id := range f.users {
		user := f.users[id]
		if user.IsAgent && !user.IsApproved {
			out = append(out, &user)
		}
	}
	return out, nil
}

var _ repositories.UserRepository = (*fakeUserRepo)(nil)

func newUserService(t *testing.T) (*UserService, *fakeUserRepo, *[]events.Event) {
	t.Helper()
	repo := newFakeUserRepo()
	bus := eventbus.NewMemory(slog.Default())

	var published []events.Event
	var mu sync.Mutex
	record := func(ctx context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, e)
		return nil
	}
	for _, et := range []events.EventType{
		events.UserCreated, events.UserApproved, events.AgentApproved, events.AgentRejected,
	} {
		bus.Subscribe(et, record)
	}

	return NewUserService(repo, bus, slog.Default()), repo, &published
}

func TestSignupCustomer(t *testing.T) {
	svc, _, published := newUserService(t)

	user, err := svc.Signup(context.Background(), SignupInput{
		Email:         "customer@example.com",
		Password:      "s3cret-pass",
		CorrelationID: "corr-1",
	})
	require.NoError(t, err)

	assert.True(t, user.IsCustomer)
	assert.False(t, user.IsAgent)
	assert.True(t, user.IsApproved, "customers are approved immediately")
	assert.NotEqual(t, "s3cret-pass", user.Password, "password is stored hashed")

	require.Len(t, *published, 1)
	e := (*published)[0]
	assert.Equal(t, events.UserCreated, e.EventType)
	assert.Equal(t, "corr-1", e.CorrelationID)
	assert.Equal(t, user.ID, e.Data["user_id"])
}

func TestSignupAgentStartsPending(t *testing.T) {
	svc, _, _ := newUserService(t)

	user, err := svc.Signup(context.Background(), SignupInput{
		Email:    "agent@example.com",
		Password: "s3cret-pass",
		IsAgent:  true,
	})
	require.NoError(t, err)

	assert.True(t, user.IsAgent)
	assert.False(t, user.IsCustomer)
	assert.False(t, user.IsApproved, "agents await admin approval")
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	svc, _, published := newUserService(t)

	_, err := svc.Signup(context.Background(), SignupInput{
		Email:    "weak@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, *published)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _ := newUserService(t)

	_, err := svc.Signup(context.Background(), SignupInput{
		Email: "dup@example.com", Password: "s3cret-pass",
	})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), SignupInput{
		Email: "dup@example.com", Password: "s3cret-pass",
	})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestApproveAgent(t *testing.T) {
	svc, _, published := newUserService(t)

	agent, err := svc.Signup(context.Background(), SignupInput{
		Email: "agent@example.com", Password: "s3cret-pass", IsAgent: true,
	})
	require.NoError(t, err)

	pending, err := svc.ListPendingAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, err := svc.ApproveAgent(context.Background(), agent.ID, "corr-2")
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	pending, err = svc.ListPendingAgents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)

	// signup + agent.approved + user.approved
	require.Len(t, *published, 3)
	assert.Equal(t, events.AgentApproved, (*published)[1].EventType)
	assert.Equal(t, events.UserApproved, (*published)[2].EventType)

	// Approving twice fails.
	_, err = svc.ApproveAgent(context.Background(), agent.ID, "")
	assert.ErrorIs(t, err, domain.ErrAgentNotPending)
}

func TestApproveNonAgentFails(t *testing.T) {
	svc, _, _ := newUserService(t)

	customer, err := svc.Signup(context.Background(), SignupInput{
		Email: "customer@example.com", Password: "s3cret-pass",
	})
	require.NoError(t, err)

	_, err = svc.ApproveAgent(context.Background(), customer.ID, "")
	assert.ErrorIs(t, err, domain.ErrAgentNotPending)
}

func TestDeleteAgent(t *testing.T) {
	svc, repo, published := newUserService(t)

	agent, err := svc.Signup(context.Background(), SignupInput{
		Email: "agent@example.com", Password: "s3cret-pass", IsAgent: true,
	})
	require.NoError(t, err)

	err = svc.DeleteAgent(context.Background(), agent.ID, "corr-3")
	require.NoError(t, err)

	_, err = repo.GetByID(context.Background(), agent.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	last := (*published)[len(*published)-1]
	assert.Equal(t, events.AgentRejected, last.EventType)
	assert.Equal(t, "corr-3", last.CorrelationID)
}

func TestCreateAdmin(t *testing.T) {
	svc, _, _ := newUserService(t)

	admin, err := svc.CreateAdmin(context.Background(), "admin@example.com", "s3cret-pass", "")
	require.NoError(t, err)

	assert.True(t, admin.IsAdmin)
	assert.True(t, admin.IsApproved)
	assert.False(t, admin.IsCustomer)
}
