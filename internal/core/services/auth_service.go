package services

import (
	"context"

	"loansphere/internal/adapters/persistence/models"
	"loansphere/internal/adapters/persistence/repositories"
	"loansphere/internal/config"
	"loansphere/internal/core/domain"
	"loansphere/internal/pkg/jwt"
	"loansphere/internal/pkg/password"
)

// AuthService handles login and token issuance
type AuthService struct {
	users repositories.UserRepository
	cfg   *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(users repositories.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{users: users, cfg: cfg}
}

// LoginOutput carries the issued token and the authenticated user
type LoginOutput struct {
	AccessToken string
	User        *models.User
}

// Login verifies credentials and issues an access token carrying the user's
// role flags as claims.
func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*LoginOutput, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if !password.Verify(plainPassword, user.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := jwt.GenerateAccessToken(
		user.ID,
		user.Email,
		user.IsCustomer,
		user.IsAgent,
		user.IsAdmin,
		user.IsApproved,
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	return &LoginOutput{AccessToken: token, User: user}, nil
}
