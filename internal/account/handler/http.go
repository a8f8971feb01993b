// Package handler exposes the account profile over REST under /api/v1/users.
package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/domain"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/server/middleware"
)

// Finder looks up accounts by id. Satisfied by the account repository.
type Finder interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
}

// ProfileHandler serves the /api/v1/users endpoints.
type ProfileHandler struct {
	accounts Finder
}

// NewProfileHandler returns a ProfileHandler backed by accounts.
func NewProfileHandler(accounts Finder) *ProfileHandler {
	return &ProfileHandler{accounts: accounts}
}

// Register mounts the profile routes on r. All routes require authentication.
func (h *ProfileHandler) Register(r fiber.Router) {
	r.Get("/me", middleware.RequireAuth(), h.me)
}

type profileResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Status        string     `json:"status"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (h *ProfileHandler) me(c *fiber.Ctx) error {
	accountID, ok := middleware.GetAccountID(c.UserContext())
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid authorization"})
	}
	acct, err := h.accounts.FindByID(c.UserContext(), accountID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	if acct == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
	}
	return c.JSON(profileResponse{
		ID:            acct.ID,
		Email:         acct.Email,
		Status:        string(acct.Status),
		EmailVerified: acct.EmailVerified,
		LastLoginAt:   acct.LastLoginAt,
		CreatedAt:     acct.CreatedAt,
	})
}
