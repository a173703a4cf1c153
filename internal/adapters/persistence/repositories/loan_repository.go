package repositories

import (
	"context"
	"errors"

	"loansphere/internal/adapters/persistence/models"
	"loansphere/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// loanRepository implements LoanRepository on GORM/MySQL
type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

// Create creates a new loan
func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

// GetByID gets a loan by ID
func (r *loanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).First(&loan, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// GetByIDForUpdate gets a loan by ID under SELECT ... FOR UPDATE. The
// exclusive row lock is what serializes concurrent approve/reject decisions
// on the same loan.
func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// Update updates a loan
func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

// List lists loans with an optional status filter, newest modifications first
func (r *loanRepository) List(ctx context.Context, status domain.LoanStatus, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Loan{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("modified_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&loans).Error

	return loans, total, err
}

// ListByCustomer lists a customer's loans with an optional status filter
func (r *loanRepository) ListByCustomer(ctx context.Context, customerID string, status domain.LoanStatus) ([]*models.Loan, error) {
	var loans []*models.Loan

	query := r.db.WithContext(ctx).Where("customer_id = ?", customerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	err := query.Order("modified_date DESC").Find(&loans).Error
	return loans, err
}

// Transaction runs fn inside a database transaction. The callback receives a
// repository bound to the transaction so row locks taken via
// GetByIDForUpdate hold until commit.
func (r *loanRepository) Transaction(ctx context.Context, fn func(txRepo LoanRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&loanRepository{db: tx})
	})
}
