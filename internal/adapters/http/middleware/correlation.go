package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const CorrelationIDHeader = "X-Correlation-ID"
const correlationIDKey = "correlation_id"

// CorrelationID extracts or generates a correlation id for the request and
// echoes it in the response. Services copy it into every event they publish
// so a loan decision can be traced across process boundaries.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := c.Get(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Locals(correlationIDKey, correlationID)
		c.Set(CorrelationIDHeader, correlationID)

		return c.Next()
	}
}

// GetCorrelationID retrieves the correlation id from the request context.
func GetCorrelationID(c *fiber.Ctx) string {
	if id, ok := c.Locals(correlationIDKey).(string); ok {
		return id
	}
	return uuid.New().String()
}
