package services

import (
	"context"
	"log/slog"

	"loansphere/internal/eventbus"
	"loansphere/internal/events"
)

// NotificationService reacts to domain events from the other service.
// Delivery is at-least-once on the durable bus, so every handler is
// idempotent: notifying twice about the same event is harmless.
type NotificationService struct {
	logger *slog.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(logger *slog.Logger) *NotificationService {
	return &NotificationService{logger: logger.With("service", "notification")}
}

// RegisterUserServiceSubscribers wires the user service's interest in loan
// events: customers are notified about the progress of their loans.
func (s *NotificationService) RegisterUserServiceSubscribers(bus eventbus.Bus) {
	bus.Subscribe(events.LoanCreated, s.handleLoanCreated)
	bus.Subscribe(events.LoanApproved, s.handleLoanApproved)
	bus.Subscribe(events.LoanRejected, s.handleLoanRejected)
}

// RegisterLoanServiceSubscribers wires the loan service's interest in user
// events: agent roster changes are tracked for audit.
func (s *NotificationService) RegisterLoanServiceSubscribers(bus eventbus.Bus) {
	bus.Subscribe(events.UserCreated, s.handleUserCreated)
	bus.Subscribe(events.AgentApproved, s.handleAgentApproved)
	bus.Subscribe(events.AgentRejected, s.handleAgentRejected)
}

func (s *NotificationService) handleLoanCreated(ctx context.Context, e events.Event) error {
	s.logger.Info("loan requested for customer",
		"loan_id", e.Data["loan_id"],
		"customer_id", e.Data["customer_id"],
		"principal", e.Data["principal"],
		"correlation_id", e.CorrelationID)
	return nil
}

func (s *NotificationService) handleLoanApproved(ctx context.Context, e events.Event) error {
	s.logger.Info("notifying customer of approved loan",
		"loan_id", e.Data["loan_id"],
		"customer_id", e.Data["customer_id"],
		"correlation_id", e.CorrelationID)
	return nil
}

func (s *NotificationService) handleLoanRejected(ctx context.Context, e events.Event) error {
	s.logger.Info("notifying customer of rejected loan",
		"loan_id", e.Data["loan_id"],
		"customer_id", e.Data["customer_id"],
		"correlation_id", e.CorrelationID)
	return nil
}

func (s *NotificationService) handleUserCreated(ctx context.Context, e events.Event) error {
	s.logger.Info("user registered",
		"user_id", e.Data["user_id"],
		"is_agent", e.Data["is_agent"],
		"correlation_id", e.CorrelationID)
	return nil
}

func (s *NotificationService) handleAgentApproved(ctx context.Context, e events.Event) error {
	s.logger.Info("agent approved, eligible to submit loans",
		"user_id", e.Data["user_id"],
		"email", e.Data["email"],
		"correlation_id", e.CorrelationID)
	return nil
}

func (s *NotificationService) handleAgentRejected(ctx context.Context, e events.Event) error {
	s.logger.Info("agent rejected",
		"user_id", e.Data["user_id"],
		"email", e.Data["email"],
		"correlation_id", e.CorrelationID)
	return nil
}
