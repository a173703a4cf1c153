package services

import (
	"context"
	"errors"
	"log/slog"

	"loansphere/internal/adapters/persistence/models"
	"loansphere/internal/adapters/persistence/repositories"
	"loansphere/internal/core/domain"
	"loansphere/internal/eventbus"
	"loansphere/internal/events"
	"loansphere/internal/pkg/password"
)

// UserService handles accounts and agent approval
type UserService struct {
	users  repositories.UserRepository
	bus    eventbus.Bus
	logger *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(users repositories.UserRepository, bus eventbus.Bus, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		bus:    bus,
		logger: logger.With("service", "user"),
	}
}

// SignupInput represents a signup request
type SignupInput struct {
	Email         string
	Password      string
	IsAgent       bool
	CorrelationID string
}

// Signup registers a customer or an agent. Agents start unapproved and must
// be approved by an admin before they can act.
func (s *UserService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	if !password.ValidatePassword(input.Password) {
		return nil, domain.ErrInvalidInput
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:      input.Email,
		Password:   hash,
		IsCustomer: !input.IsAgent,
		IsAgent:    input.IsAgent,
		IsApproved: !input.IsAgent,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.
		NewUserCreated(user.ID, user.Email, user.IsCustomer, user.IsAgent).
		WithCorrelationID(input.CorrelationID))

	return user, nil
}

// CreateAdmin registers a new admin account. Admin only.
func (s *UserService) CreateAdmin(ctx context.Context, email, plainPassword, correlationID string) (*models.User, error) {
	if !password.ValidatePassword(plainPassword) {
		return nil, domain.ErrInvalidInput
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:      email,
		Password:   hash,
		IsCustomer: false,
		IsAdmin:    true,
		IsApproved: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.
		NewUserCreated(user.ID, user.Email, false, false).
		WithCorrelationID(correlationID))

	return user, nil
}

// GetByID fetches one user.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// List lists users with pagination.
func (s *UserService) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	return s.users.List(ctx, offset, limit)
}

// ListPendingAgents lists agents waiting for approval.
func (s *UserService) ListPendingAgents(ctx context.Context) ([]*models.User, error) {
	return s.users.ListPendingAgents(ctx)
}

// ApproveAgent approves a pending agent and announces it on the bus.
func (s *UserService) ApproveAgent(ctx context.Context, id uint, correlationID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !user.IsAgent || user.IsApproved {
		return nil, domain.ErrAgentNotPending
	}

	user.IsApproved = true
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewAgentApproved(user.ID, user.Email).WithCorrelationID(correlationID))
	s.publish(ctx, events.NewUserApproved(user.ID, user.Email).WithCorrelationID(correlationID))

	return user, nil
}

// DeleteAgent removes a pending agent and announces the rejection.
func (s *UserService) DeleteAgent(ctx context.Context, id uint, correlationID string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !user.IsAgent || user.IsApproved {
		return domain.ErrAgentNotPending
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}

	s.publish(ctx, events.NewAgentRejected(user.ID, user.Email).WithCorrelationID(correlationID))
	return nil
}

// publish logs and drops events the bus cannot take; account changes are
// authoritative locally.
func (s *UserService) publish(ctx context.Context, e events.Event) {
	if err := s.bus.Publish(ctx, e); err != nil {
		body, _ := e.Marshal()
		s.logger.Error("event lost, local state committed",
			"event_type", e.EventType,
			"payload", string(body),
			"error", err)
	}
}
