package models

import (
	"time"

	"loansphere/internal/core/domain"

	"gorm.io/gorm"
)

// User represents the users table owned by the user service. Roles are
// boolean flags; agents start unapproved and must be approved by an admin
// before they can act.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Email      string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password   string    `gorm:"size:255;not null" json:"-"`
	IsCustomer bool      `gorm:"default:true" json:"is_customer"`
	IsAgent    bool      `gorm:"default:false" json:"is_agent"`
	IsAdmin    bool      `gorm:"default:false" json:"is_admin"`
	IsApproved bool      `gorm:"default:true" json:"is_approved"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID         uint      `json:"id"`
	Email      string    `json:"email"`
	IsCustomer bool      `json:"is_customer"`
	IsAgent    bool      `json:"is_agent"`
	IsAdmin    bool      `json:"is_admin"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		IsCustomer: u.IsCustomer,
		IsAgent:    u.IsAgent,
		IsAdmin:    u.IsAdmin,
		IsApproved: u.IsApproved,
		CreatedAt:  u.CreatedAt,
	}
}

// Loan represents the loan table owned by the loan service. CustomerID and
// AgentID reference users owned by the user service and are held as opaque
// identifiers; no cross-service foreign key is enforced. Interest, EMI and
// Amount are always system-computed, never client-supplied.
type Loan struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	CustomerID   string            `gorm:"size:255;index;not null" json:"customer_id"`
	AgentID      *string           `gorm:"size:255;index" json:"agent_id"`
	Principal    float64           `gorm:"not null" json:"principal"`
	Interest     float64           `gorm:"not null" json:"interest"`
	Months       int               `gorm:"not null" json:"months"`
	EMI          float64           `gorm:"not null" json:"emi"`
	Amount       float64           `gorm:"not null" json:"amount"`
	Status       domain.LoanStatus `gorm:"size:12;index;default:'NEW'" json:"status"`
	StartDate    time.Time         `json:"start_date"`
	EndDate      time.Time         `json:"end_date"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	ModifiedDate time.Time         `gorm:"autoUpdateTime" json:"modified_date"`
}

func (Loan) TableName() string {
	return "loan"
}

// LoanResponse DTO
type LoanResponse struct {
	ID           uint              `json:"id"`
	CustomerID   string            `json:"customer_id"`
	AgentID      *string           `json:"agent_id"`
	Principal    float64           `json:"principal"`
	Interest     float64           `json:"interest"`
	Months       int               `json:"months"`
	EMI          float64           `json:"emi"`
	Amount       float64           `json:"amount"`
	Status       domain.LoanStatus `json:"status"`
	StartDate    time.Time         `json:"start_date"`
	EndDate      time.Time         `json:"end_date"`
	CreatedAt    time.Time         `json:"created_at"`
	ModifiedDate time.Time         `json:"modified_date"`
}

func (l *Loan) ToResponse() *LoanResponse {
	return &LoanResponse{
		ID:           l.ID,
		CustomerID:   l.CustomerID,
		AgentID:      l.AgentID,
		Principal:    l.Principal,
		Interest:     l.Interest,
		Months:       l.Months,
		EMI:          l.EMI,
		Amount:       l.Amount,
		Status:       l.Status,
		StartDate:    l.StartDate,
		EndDate:      l.EndDate,
		CreatedAt:    l.CreatedAt,
		ModifiedDate: l.ModifiedDate,
	}
}

// AutoMigrateUserService migrates the tables the user service owns.
func AutoMigrateUserService(db *gorm.DB) error {
	return db.AutoMigrate(&User{})
}

// AutoMigrateLoanService migrates the tables the loan service owns.
func AutoMigrateLoanService(db *gorm.DB) error {
	return db.AutoMigrate(&Loan{})
}
