// Package middleware holds the fiber middleware for the HTTP server:
// bearer-token authentication and request-scoped identity propagation.
package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	accountdomain "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/domain"
)

const bearerPrefix = "bearer "

// TokenValidator checks an access token end to end, including revocation.
// Satisfied by the auth service.
type TokenValidator interface {
	Validate(ctx context.Context, accessToken string) (*accountdomain.Account, error)
}

// Auth returns middleware that validates the Bearer (access) token from the
// Authorization header and sets account_id and account_email in the request
// context. A missing or invalid token passes through unauthenticated; routes
// that need identity add RequireAuth after this.
func Auth(tokens TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearer(c.Get(fiber.HeaderAuthorization))
		if token != "" {
			if acct, err := tokens.Validate(c.UserContext(), token); err == nil {
				c.SetUserContext(WithIdentity(c.UserContext(), acct.ID, acct.Email))
			}
		}
		return c.Next()
	}
}

// RequireAuth returns middleware that rejects requests without an
// authenticated identity in context.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := GetAccountID(c.UserContext()); !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid authorization",
			})
		}
		return c.Next()
	}
}

// extractBearer returns the Bearer token from an Authorization header value,
// or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
