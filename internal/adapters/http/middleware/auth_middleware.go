package middleware

import (
	"strings"

	"loansphere/internal/config"
	"loansphere/internal/pkg/jwt"
	"loansphere/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const claimsKey = "claims"

// AuthMiddleware validates the bearer token and stores the claims for the
// role guards and handlers downstream.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var accessToken string

		authHeader := c.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			accessToken = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret)
		if err != nil {
			if err == jwt.ErrTokenExpired {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// GetClaims retrieves the authenticated user's claims
func GetClaims(c *fiber.Ctx) *jwt.Claims {
	claims, _ := c.Locals(claimsKey).(*jwt.Claims)
	return claims
}

// AdminOnly allows only admins
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil || !claims.IsAdmin {
			return response.Forbidden(c, "Admin access required")
		}
		return c.Next()
	}
}

// AgentOnly allows only approved agents
func AgentOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil || !claims.IsAgent {
			return response.Forbidden(c, "Agent access required")
		}
		if !claims.IsApproved {
			return response.Forbidden(c, "Agent is not approved yet")
		}
		return c.Next()
	}
}

// CustomerOnly allows only customers
func CustomerOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil || !claims.IsCustomer {
			return response.Forbidden(c, "Customer access required")
		}
		return c.Next()
	}
}

// AdminOrAgent allows admins and approved agents
func AdminOrAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if claims.IsAdmin || (claims.IsAgent && claims.IsApproved) {
			return c.Next()
		}
		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}
