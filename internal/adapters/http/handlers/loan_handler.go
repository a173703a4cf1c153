package handlers

import (
	"errors"
	"strconv"

	"loansphere/internal/adapters/http/middleware"
	"loansphere/internal/adapters/persistence/models"
	"loansphere/internal/core/domain"
	"loansphere/internal/core/services"
	"loansphere/internal/pkg/pagination"
	"loansphere/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles loan endpoints
type LoanHandler struct {
	loanService *services.LoanService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// CreateLoanRequest represents a loan request submitted by an agent
type CreateLoanRequest struct {
	CustomerID string  `json:"customer_id" validate:"required"`
	Principal  float64 `json:"principal" validate:"required"`
	Months     int     `json:"months" validate:"required,gte=1"`
}

// DecideLoanRequest carries the admin's decision
type DecideLoanRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
}

// EditLoanRequest reworks an undecided loan
type EditLoanRequest struct {
	Principal float64 `json:"principal" validate:"required"`
	Months    int     `json:"months" validate:"required,gte=1"`
}

// Quote prices a loan without creating it
// @Summary Quote a loan
// @Description Compute tiered interest, EMI and total amount (Agent only)
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param principal query number true "Principal amount"
// @Param months query int true "Tenure in months"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /loans/quote [get]
func (h *LoanHandler) Quote(c *fiber.Ctx) error {
	principal, err := strconv.ParseFloat(c.Query("principal"), 64)
	if err != nil {
		return response.BadRequest(c, "Invalid principal")
	}
	months, err := strconv.Atoi(c.Query("months"))
	if err != nil || months < 0 {
		return response.BadRequest(c, "Invalid months")
	}

	quote, err := h.loanService.Quote(principal, months)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	return response.Success(c, "Loan quoted", fiber.Map{"quote": quote})
}

// Create submits a loan request for a customer
// @Summary Request a loan
// @Description Agent requests a loan for a customer
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateLoanRequest true "Loan request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Create(c *fiber.Ctx) error {
	var req CreateLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return response.BadRequest(c, "Invalid loan request data")
	}

	claims := middleware.GetClaims(c)

	loan, err := h.loanService.Create(c.Context(), services.CreateLoanInput{
		CustomerID:    req.CustomerID,
		AgentID:       strconv.FormatUint(uint64(claims.UserID), 10),
		Principal:     req.Principal,
		Months:        req.Months,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPrincipalTooLow),
			errors.Is(err, domain.ErrInvalidMonths):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to create loan")
		}
	}

	return response.Created(c, "Loan request submitted successfully", fiber.Map{
		"loan": loan.ToResponse(),
	})
}

// Decide approves or rejects a loan
// @Summary Approve or reject a loan
// @Description Admin decides a NEW loan; the transition runs under a row lock
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body DecideLoanRequest true "Decision"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id}/decision [put]
func (h *LoanHandler) Decide(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req DecideLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return response.BadRequest(c, "Invalid status value")
	}

	loan, err := h.loanService.Decide(c.Context(), uint(id),
		domain.LoanStatus(req.Status), middleware.GetCorrelationID(c))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, domain.ErrInvalidStatus):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, domain.ErrInvalidTransition):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to update loan")
		}
	}

	return response.Success(c, "Loan has been "+string(loan.Status), fiber.Map{
		"loan": loan.ToResponse(),
	})
}

// Edit reworks a loan that has not been approved
// @Summary Edit a loan
// @Description Agent edits an undecided loan; pricing is recomputed and the loan reopens as NEW
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body EditLoanRequest true "New terms"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [put]
func (h *LoanHandler) Edit(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req EditLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return response.BadRequest(c, "Invalid edit data")
	}

	loan, err := h.loanService.Edit(c.Context(), uint(id), services.EditLoanInput{
		Principal:     req.Principal,
		Months:        req.Months,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			return response.BadRequest(c, "Cannot edit an approved loan")
		case errors.Is(err, domain.ErrPrincipalTooLow),
			errors.Is(err, domain.ErrInvalidMonths):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to update loan")
		}
	}

	return response.Success(c, "Loan updated successfully", fiber.Map{
		"loan": loan.ToResponse(),
	})
}

// GetByID fetches one loan
// @Summary Get a loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) GetByID(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.GetByID(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return response.NotFound(c, "Loan not found")
		}
		return response.InternalServerError(c, "Failed to fetch loan")
	}

	// Customers may only see their own loans.
	claims := middleware.GetClaims(c)
	if !claims.IsAdmin && !claims.IsAgent {
		if loan.CustomerID != strconv.FormatUint(uint64(claims.UserID), 10) {
			return response.Forbidden(c, "You don't have permission to access this resource")
		}
	}

	return response.Success(c, "Loan fetched", fiber.Map{"loan": loan.ToResponse()})
}

// List lists loans for admins and agents
// @Summary List loans
// @Description List loans with optional status filter (Admin/Agent)
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter (NEW, APPROVED, REJECTED)"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /loans [get]
func (h *LoanHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	status := domain.LoanStatus(c.Query("status"))

	loans, total, err := h.loanService.List(c.Context(), status, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	return response.Success(c, "Loans fetched", fiber.Map{
		"loans": toLoanResponses(loans),
		"meta":  pagination.GetMeta(params, total),
	})
}

// ListMine lists the authenticated customer's loans
// @Summary List own loans
// @Description List the calling customer's loans with optional status filter
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter (NEW, APPROVED, REJECTED)"
// @Success 200 {object} response.Response
// @Router /loans/my [get]
func (h *LoanHandler) ListMine(c *fiber.Ctx) error {
	claims := middleware.GetClaims(c)
	customerID := strconv.FormatUint(uint64(claims.UserID), 10)
	status := domain.LoanStatus(c.Query("status"))

	loans, err := h.loanService.ListByCustomer(c.Context(), customerID, status)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	return response.Success(c, "Loans fetched", fiber.Map{
		"loans": toLoanResponses(loans),
		"count": len(loans),
	})
}

func toLoanResponses(loans []*models.Loan) []*models.LoanResponse {
	out := make([]*models.LoanResponse, 0, len(loans))
	for _, loan := range loans {
		out = append(out, loan.ToResponse())
	}
	return out
}
