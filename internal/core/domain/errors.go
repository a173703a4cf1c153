package domain

import "errors"

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrAgentNotPending   = errors.New("agent is not pending approval")
)

// Loan errors
var (
	ErrLoanNotFound      = errors.New("loan not found")
	ErrPrincipalTooLow   = errors.New("principal amount cannot be less than 10000")
	ErrInvalidMonths     = errors.New("months must be at least 1")
	ErrInvalidStatus     = errors.New("status must be APPROVED or REJECTED")
	ErrInvalidTransition = errors.New("loan is not in a state that allows this transition")
)
