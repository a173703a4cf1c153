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

// UserHandler handles user endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// SignupRequest represents a signup request
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	IsAgent  bool   `json:"is_agent"`
}

// CreateAdminRequest represents an admin creation request
type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Signup registers a customer or an agent
// @Summary Sign up
// @Description Register a new customer or agent; agents await admin approval
// @Tags Users
// @Accept json
// @Produce json
// @Param body body SignupRequest true "Signup data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /users/signup [post]
func (h *UserHandler) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return response.BadRequest(c, "Invalid signup data")
	}

	user, err := h.userService.Signup(c.Context(), services.SignupInput{
		Email:         req.Email,
		Password:      req.Password,
		IsAgent:       req.IsAgent,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			return response.Conflict(c, "User already exists")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Password does not meet requirements")
		default:
			return response.InternalServerError(c, "Failed to create user")
		}
	}

	return response.Created(c, "User created successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// Profile returns the authenticated user's account
// @Summary Get profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /users/me [get]
func (h *UserHandler) Profile(c *fiber.Ctx) error {
	claims := middleware.GetClaims(c)

	user, err := h.userService.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch profile")
	}

	return response.Success(c, "Profile fetched", fiber.Map{"user": user.ToResponse()})
}

// CreateAdmin registers a new admin
// @Summary Create admin
// @Description Create a new admin account (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateAdminRequest true "Admin data"
// @Success 201 {object} response.Response
// @Router /users/admins [post]
func (h *UserHandler) CreateAdmin(c *fiber.Ctx) error {
	var req CreateAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return response.BadRequest(c, "Invalid admin data")
	}

	user, err := h.userService.CreateAdmin(c.Context(), req.Email, req.Password,
		middleware.GetCorrelationID(c))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			return response.Conflict(c, "User already exists")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Password does not meet requirements")
		default:
			return response.InternalServerError(c, "Failed to create admin")
		}
	}

	return response.Created(c, "Admin created successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// List lists all users
// @Summary List users
// @Description List users with pagination (Admin only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	users, total, err := h.userService.List(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list users")
	}

	return response.Success(c, "Users fetched", fiber.Map{
		"users": toUserResponses(users),
		"meta":  pagination.GetMeta(params, total),
	})
}

// ListPendingAgents lists agents waiting for approval
// @Summary List pending agents
// @Description List agents awaiting approval (Admin only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /users/agents/pending [get]
func (h *UserHandler) ListPendingAgents(c *fiber.Ctx) error {
	users, err := h.userService.ListPendingAgents(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list pending agents")
	}

	return response.Success(c, "Pending agents fetched", fiber.Map{
		"users": toUserResponses(users),
		"count": len(users),
	})
}

// ApproveAgent approves a pending agent
// @Summary Approve agent
// @Description Approve a pending agent (Admin only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/agents/{id}/approve [put]
func (h *UserHandler) ApproveAgent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	user, err := h.userService.ApproveAgent(c.Context(), uint(id),
		middleware.GetCorrelationID(c))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, domain.ErrAgentNotPending):
			return response.BadRequest(c, "Agent is not pending approval")
		default:
			return response.InternalServerError(c, "Failed to approve agent")
		}
	}

	return response.Success(c, "Agent approved successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// DeleteAgent removes a pending agent
// @Summary Reject agent
// @Description Delete a pending agent (Admin only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/agents/{id} [delete]
func (h *UserHandler) DeleteAgent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	err = h.userService.DeleteAgent(c.Context(), uint(id), middleware.GetCorrelationID(c))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, domain.ErrAgentNotPending):
			return response.BadRequest(c, "Agent is not pending approval")
		default:
			return response.InternalServerError(c, "Failed to delete agent")
		}
	}

	return response.Success(c, "Agent rejected and removed", nil)
}

func toUserResponses(users []*models.User) []*models.UserResponse {
	out := make([]*models.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, user.ToResponse())
	}
	return out
}
