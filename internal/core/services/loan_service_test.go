package services

import (
	"context"
	"errors"
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

// fakeLoanRepo is an in-memory LoanRepository. Transaction serializes
// callers on a mutex, which models the exclusive row lock the MySQL
// implementation takes via SELECT ... FOR UPDATE.
type fakeLoanRepo struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	loans  map[uint]models.Loan
	nextID uint
}

func newFakeLoanRepo() *fakeLoanRepo {
	return &fakeLoanRepo{loans: make(map[uint]models.Loan)}
}

func (f *fakeLoanRepo) Create(ctx context.Context, loan *models.Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	loan.ID = f.nextID
	f.loans[loan.ID] = *loan
	return nil
}

func (f *fakeLoanRepo) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loan, ok := f.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return &loan, nil
}

func (f *fakeLoanRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Loan, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeLoanRepo) Update(ctx context.Context, loan *models.Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.loans[loan.ID]; !ok {
		return domain.ErrLoanNotFound
	}
	f.loans[loan.ID] = *loan
	return nil
}

func (f *fakeLoanRepo) List(ctx context.Context, status domain.LoanStatus, offset, limit int) ([]*models.Loan, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Loan
	for id := range f.loans {
		loan := f.loans[id]
		if status == "" || loan.Status == status {
			out = append(out, &loan)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeLoanRepo) ListByCustomer(ctx context.Context, customerID string, status domain.LoanStatus) ([]*models.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Loan
	for id := range f.loans {
		loan := f.loans[id]
		if loan.CustomerID == customerID && (status == "" || loan.Status == status) {
			out = append(out, &loan)
		}
	}
	return out, nil
}

// Transaction serializes concurrent decisions the way the row lock does:
// the whole read-check-write critical section runs under one mutex.
func (f *fakeLoanRepo) Transaction(ctx context.Context, fn func(txRepo repositories.LoanRepository) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	return fn(f)
}

var _ repositories.LoanRepository = (*fakeLoanRepo)(nil)

func newService(t *testing.T) (*LoanService, *fakeLoanRepo, *eventbus.MemoryBus, *[]events.Event) {
	t.Helper()
	repo := newFakeLoanRepo()
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
		events.LoanCreated, events.LoanApproved, events.LoanRejected, events.LoanEdited,
	} {
		bus.Subscribe(et, record)
	}

	return NewLoanService(repo, bus, slog.Default()), repo, bus, &published
}

func TestQuoteIsPure(t *testing.T) {
	first, err := CalculateQuote(50000, 12)
	require.NoError(t, err)
	second, err := CalculateQuote(50000, 12)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestQuoteKnownValues(t *testing.T) {
	quote, err := CalculateQuote(50000, 12)
	require.NoError(t, err)

	assert.Equal(t, 8.45, quote.Interest)
	assert.Equal(t, 4359.83, quote.EMI)
	assert.Equal(t, quote.EMI*12, quote.Amount)
}

func TestInterestTiers(t *testing.T) {
	tests := []struct {
		principal float64
		want      float64
	}{
		{10000, 8.45},
		{50000, 8.45},
		{999999, 8.45},
		{1000000, 10.0},
		{1500000, 10.0},
		{2499999, 10.0},
		{2500000, 12.0},
		{3000000, 12.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateInterest(tt.principal),
			"principal %.0f", tt.principal)
	}
}

func TestQuoteRejectsLowPrincipal(t *testing.T) {
	_, err := CalculateQuote(9999, 12)
	assert.ErrorIs(t, err, domain.ErrPrincipalTooLow)
}

func TestQuoteZeroMonths(t *testing.T) {
	quote, err := CalculateQuote(50000, 0)
	require.NoError(t, err)
	assert.Zero(t, quote.EMI)
	assert.Zero(t, quote.Amount)
}

func TestCreateLoan(t *testing.T) {
	svc, repo, _, published := newService(t)

	loan, err := svc.Create(context.Background(), CreateLoanInput{
		CustomerID:    "3",
		AgentID:       "5",
		Principal:     50000,
		Months:        12,
		CorrelationID: "corr-1",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStatusNew, loan.Status)
	assert.Equal(t, 8.45, loan.Interest)
	assert.Equal(t, 4359.83, loan.EMI)
	assert.Equal(t, loan.EMI*12, loan.Amount)
	assert.Equal(t, loan.StartDate.Add(12*monthDuration), loan.EndDate)

	stored, err := repo.GetByID(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusNew, stored.Status)

	require.Len(t, *published, 1)
	e := (*published)[0]
	assert.Equal(t, events.LoanCreated, e.EventType)
	assert.Equal(t, "corr-1", e.CorrelationID)
	assert.Equal(t, loan.ID, e.Data["loan_id"])
}

func TestCreateLoanValidation(t *testing.T) {
	svc, _, _, published := newService(t)

	_, err := svc.Create(context.Background(), CreateLoanInput{
		CustomerID: "3", Principal: 9999, Months: 12,
	})
	assert.ErrorIs(t, err, domain.ErrPrincipalTooLow)

	_, err = svc.Create(context.Background(), CreateLoanInput{
		CustomerID: "3", Principal: 50000, Months: 0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMonths)

	assert.Empty(t, *published, "no event for a rejected request")
}

func TestDecideTransitions(t *testing.T) {
	svc, _, _, published := newService(t)

	loan, err := svc.Create(context.Background(), CreateLoanInput{
		CustomerID: "3", AgentID: "5", Principal: 50000, Months: 12,
	})
	require.NoError(t, err)

	decided, err := svc.Decide(context.Background(), loan.ID, domain.LoanStatusApproved, "corr-2")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusApproved, decided.Status)

	// A second decision on a terminal loan fails.
	_, err = svc.Decide(context.Background(), loan.ID, domain.LoanStatusRejected, "corr-3")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.Len(t, *published, 2)
	assert.Equal(t, events.LoanApproved, (*published)[1].EventType)
}

func TestDecideRejectsBogusStatus(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.Decide(context.Background(), 1, domain.LoanStatusNew, "")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.Decide(context.Background(), 1, "PENDING", "")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestDecideUnknownLoan(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.Decide(context.Background(), 404, domain.LoanStatusApproved, "")
	assert.ErrorIs(t, err, domain.ErrLoanNotFound)
}

func TestConcurrentDecideExactlyOneWins(t *testing.T) {
	svc, _, _, _ := newService(t)

	loan, err := svc.Create(context.Background(), CreateLoanInput{
		CustomerID: "3", AgentID: "5", Principal: 50000, Months: 12,
	})
	require.NoError(t, err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, status := range []domain.LoanStatus{domain.LoanStatusApproved, domain.LoanStatusRejected} {
		wg.Add(1)
		go func(status domain.LoanStatus) {
			defer wg.Done()
			_, err := svc.Decide(context.Background(), loan.ID, status, "")
			results <- err
		}(status)
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			losses++
		}
	}
	assert.Equal(t, 1, wins, "exactly one decision wins")
	assert.Equal(t, 1, losses)
}

func TestEditApprovedLoanFails(t *testing.T) {
	svc, _, _, _ := newService(t)

	loan, err := svc.Create(context.Background(), CreateLoanInput{
		CustomerID: "3", AgentID: "5", Principal: 50000, Months: 12,
	})
	require.NoError(t, err)
	_, err = svc.Decide(context.Background(), loan.ID, domain.LoanStatusApproved, "")
	require.NoError(t, err)

	_, err = svc.Edit(context.Background(), loan.ID, EditLoanInput{Principal: 60000, Months: 24})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestEditRecomputesAndReopens(t *testing.T) {
	svc, _, _, published := newService(t)

	loan, err := svc.Create(context.Background(), CreateLoanInput{
		CustomerID: "3", AgentID: "5", Principal: 50000, Months: 12,
	})
	require.NoError(t, err)

	// A rejected loan reopens on edit.
	_, err = svc.Decide(context.Background(), loan.ID, domain.LoanStatusRejected, "")
	require.NoError(t, err)

	edited, err := svc.Edit(context.Background(), loan.ID, EditLoanInput{
		Principal: 1500000, Months: 24,
	})
	require.NoError(t, err)

	want, err := CalculateQuote(1500000, 24)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusNew, edited.Status)
	assert.Equal(t, want.Interest, edited.Interest)
	assert.Equal(t, want.EMI, edited.EMI)
	assert.Equal(t, want.Amount, edited.Amount)

	last := (*published)[len(*published)-1]
	assert.Equal(t, events.LoanEdited, last.EventType)
}

// failingBus always reports the transport as unavailable.
type failingBus struct{}

func (failingBus) Publish(ctx context.Context, e events.Event) error {
	return eventbus.ErrBusUnavailable
}
func (failingBus) Subscribe(eventType events.EventType, h eventbus.Handler) {}
func (failingBus) Consume(ctx context.Context) error                        { return nil }
func (failingBus) Close() error                                             { return nil }

func TestStateCommitsWhenBusIsDown(t *testing.T) {
	repo := newFakeLoanRepo()
	svc := NewLoanService(repo, failingBus{}, slog.Default())

	loan, err := svc.Create(context.Background(), CreateLoanInput{
		CustomerID: "3", AgentID: "5", Principal: 50000, Months: 12,
	})
	require.NoError(t, err, "a publish failure never rolls back local state")

	decided, err := svc.Decide(context.Background(), loan.ID, domain.LoanStatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusApproved, decided.Status)
}

func TestBusUnavailableIsDistinguishable(t *testing.T) {
	err := failingBus{}.Publish(context.Background(), events.Event{})
	assert.True(t, errors.Is(err, eventbus.ErrBusUnavailable))
}
