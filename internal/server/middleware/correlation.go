package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Correlation copies the id assigned by the requestid middleware into the
// request context, where services and the audit trail pick it up. Mount it
// after requestid.New.
func Correlation() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok && id != "" {
			c.SetUserContext(WithCorrelationID(c.UserContext(), id))
		}
		return c.Next()
	}
}
