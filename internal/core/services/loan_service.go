package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loansphere/internal/adapters/persistence/models"
	"loansphere/internal/adapters/persistence/repositories"
	"loansphere/internal/core/domain"
	"loansphere/internal/eventbus"
	"loansphere/internal/events"
)

// monthDuration is the fixed 730-hour month approximation used for loan end
// dates. Intentionally not a calendar-month calculation.
const monthDuration = 730 * time.Hour

// LoanService handles the loan lifecycle: quoting, creation, the locked
// approve/reject transition, and rework of undecided loans. State changes
// commit locally regardless of bus availability; an event that cannot be
// published is logged with its payload for replay.
type LoanService struct {
	loans  repositories.LoanRepository
	bus    eventbus.Bus
	logger *slog.Logger
}

// NewLoanService creates a new loan service
func NewLoanService(loans repositories.LoanRepository, bus eventbus.Bus, logger *slog.Logger) *LoanService {
	return &LoanService{
		loans:  loans,
		bus:    bus,
		logger: logger.With("service", "loan"),
	}
}

// CreateLoanInput represents a loan request submitted by an agent
type CreateLoanInput struct {
	CustomerID    string
	AgentID       string
	Principal     float64
	Months        int
	CorrelationID string
}

// EditLoanInput represents a rework of an undecided loan
type EditLoanInput struct {
	Principal     float64
	Months        int
	CorrelationID string
}

// Quote prices a loan request without creating anything.
func (s *LoanService) Quote(principal float64, months int) (domain.Quote, error) {
	return CalculateQuote(principal, months)
}

// Create quotes and persists a new loan in status NEW, then publishes
// loan.created.
func (s *LoanService) Create(ctx context.Context, input CreateLoanInput) (*models.Loan, error) {
	if input.Months < 1 {
		return nil, domain.ErrInvalidMonths
	}

	quote, err := CalculateQuote(input.Principal, input.Months)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	loan := &models.Loan{
		CustomerID: input.CustomerID,
		Principal:  quote.Principal,
		Interest:   quote.Interest,
		Months:     quote.Months,
		EMI:        quote.EMI,
		Amount:     quote.Amount,
		Status:     domain.LoanStatusNew,
		StartDate:  now,
		EndDate:    now.Add(time.Duration(input.Months) * monthDuration),
	}
	if input.AgentID != "" {
		loan.AgentID = &input.AgentID
	}

	if err := s.loans.Create(ctx, loan); err != nil {
		return nil, err
	}

	s.publish(ctx, events.
		NewLoanCreated(loan.ID, loan.CustomerID, input.AgentID, loan.Principal).
		WithCorrelationID(input.CorrelationID))

	return loan, nil
}

// Decide approves or rejects a NEW loan. The read-check-write runs under an
// exclusive row lock inside one transaction, so of two concurrent decisions
// on the same loan exactly one wins and the other observes the terminal
// state. The corresponding event is published after commit.
func (s *LoanService) Decide(ctx context.Context, loanID uint, status domain.LoanStatus, correlationID string) (*models.Loan, error) {
	if !status.IsDecision() {
		return nil, domain.ErrInvalidStatus
	}

	var updated *models.Loan
	err := s.loans.Transaction(ctx, func(txRepo repositories.LoanRepository) error {
		loan, err := txRepo.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}

		if loan.Status != domain.LoanStatusNew {
			return fmt.Errorf("%w: current status is %s", domain.ErrInvalidTransition, loan.Status)
		}

		loan.Status = status
		if err := txRepo.Update(ctx, loan); err != nil {
			return err
		}

		updated = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	var event events.Event
	if status == domain.LoanStatusApproved {
		event = events.NewLoanApproved(updated.ID, updated.CustomerID)
	} else {
		event = events.NewLoanRejected(updated.ID, updated.CustomerID)
	}
	s.publish(ctx, event.WithCorrelationID(correlationID))

	return updated, nil
}

// Edit reworks a loan that has not been approved: it re-quotes, overwrites
// the derived fields and dates, and resets the status to NEW. Editing a
// rejected loan reopens it for a new decision.
func (s *LoanService) Edit(ctx context.Context, loanID uint, input EditLoanInput) (*models.Loan, error) {
	loan, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.Status == domain.LoanStatusApproved {
		return nil, fmt.Errorf("%w: approved loans cannot be edited", domain.ErrInvalidTransition)
	}

	if input.Months < 1 {
		return nil, domain.ErrInvalidMonths
	}

	quote, err := CalculateQuote(input.Principal, input.Months)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	loan.Principal = quote.Principal
	loan.Interest = quote.Interest
	loan.Months = quote.Months
	loan.EMI = quote.EMI
	loan.Amount = quote.Amount
	loan.Status = domain.LoanStatusNew
	loan.StartDate = now
	loan.EndDate = now.Add(time.Duration(input.Months) * monthDuration)

	if err := s.loans.Update(ctx, loan); err != nil {
		return nil, err
	}

	s.publish(ctx, events.
		NewLoanEdited(loan.ID, loan.CustomerID, loan.Principal, loan.Months).
		WithCorrelationID(input.CorrelationID))

	return loan, nil
}

// GetByID fetches one loan.
func (s *LoanService) GetByID(ctx context.Context, loanID uint) (*models.Loan, error) {
	return s.loans.GetByID(ctx, loanID)
}

// List lists loans for admins and agents with an optional status filter.
func (s *LoanService) List(ctx context.Context, status domain.LoanStatus, offset, limit int) ([]*models.Loan, int64, error) {
	return s.loans.List(ctx, status, offset, limit)
}

// ListByCustomer lists a customer's own loans.
func (s *LoanService) ListByCustomer(ctx context.Context, customerID string, status domain.LoanStatus) ([]*models.Loan, error) {
	return s.loans.ListByCustomer(ctx, customerID, status)
}

// publish sends the event and, if the bus is unavailable, logs the full
// payload at error level. The local state change is the authoritative record
// and is never rolled back because of a publish failure.
func (s *LoanService) publish(ctx context.Context, e events.Event) {
	if err := s.bus.Publish(ctx, e); err != nil {
		body, _ := e.Marshal()
		s.logger.Error("event lost, local state committed",
			"event_type", e.EventType,
			"payload", string(body),
			"error", err)
	}
}
