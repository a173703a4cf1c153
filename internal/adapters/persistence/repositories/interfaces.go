package repositories

import (
	"context"

	"loansphere/internal/adapters/persistence/models"
	"loansphere/internal/core/domain"
)

// LoanRepository is the persistence contract the loan service depends on.
// GetByIDForUpdate acquires an exclusive row lock and is only meaningful
// inside a Transaction callback; the lock is held until the transaction
// commits or rolls back.
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id uint) (*models.Loan, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Loan, error)
	Update(ctx context.Context, loan *models.Loan) error
	List(ctx context.Context, status domain.LoanStatus, offset, limit int) ([]*models.Loan, int64, error)
	ListByCustomer(ctx context.Context, customerID string, status domain.LoanStatus) ([]*models.Loan, error)

	// Transaction runs fn against a repository bound to one database
	// transaction, committing on nil and rolling back on error.
	Transaction(ctx context.Context, fn func(txRepo LoanRepository) error) error
}

// UserRepository is the persistence contract the user service depends on.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ListPendingAgents(ctx context.Context) ([]*models.User, error)
}
