// Package handler exposes the auth flows over REST under /api/v1/auth.
package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	accountdomain "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/domain"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/auth/service"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/server/middleware"
)

// Service is the auth orchestrator surface the HTTP handler needs.
type Service interface {
	Register(ctx context.Context, email, password string, client service.ClientMeta) (*accountdomain.Account, error)
	Login(ctx context.Context, email, password string, client service.ClientMeta) (*service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, client service.ClientMeta) (*service.AuthResult, error)
	Validate(ctx context.Context, accessToken string) (*accountdomain.Account, error)
	Logout(ctx context.Context, accountID string, client service.ClientMeta) error
}

// AuthHandler serves the /api/v1/auth endpoints.
type AuthHandler struct {
	svc Service
}

// NewAuthHandler returns an AuthHandler backed by svc.
func NewAuthHandler(svc Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register mounts the auth routes on r. Logout inspects the Authorization
// header itself so a malformed header can be told apart from a bad token.
func (h *AuthHandler) Register(r fiber.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Post("/validate", h.validate)
	r.Post("/logout", h.logout)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type validateRequest struct {
	Token string `json:"token"`
}

type userResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Status        string    `json:"status"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

type tokenResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	User         userResponse `json:"user"`
}

func newUserResponse(a *accountdomain.Account) userResponse {
	return userResponse{
		ID:            a.ID,
		Email:         a.Email,
		Status:        string(a.Status),
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
	}
}

func newTokenResponse(res *service.AuthResult) tokenResponse {
	return tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		User:         newUserResponse(res.Account),
	}
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}
	acct, err := h.svc.Register(c.UserContext(), req.Email, req.Password, clientMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newUserResponse(acct))
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}
	res, err := h.svc.Login(c.UserContext(), req.Email, req.Password, clientMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newTokenResponse(res))
}

func (h *AuthHandler) refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}
	res, err := h.svc.Refresh(c.UserContext(), req.RefreshToken, clientMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newTokenResponse(res))
}

func (h *AuthHandler) validate(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}
	acct, err := h.svc.Validate(c.UserContext(), req.Token)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"valid": true,
		"user":  newUserResponse(acct),
	})
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	if bearerToken(c) == "" {
		// No usable Bearer token at all is a client mistake, not an auth failure.
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing or malformed authorization header"})
	}
	accountID, ok := middleware.GetAccountID(c.UserContext())
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
	}
	if err := h.svc.Logout(c.UserContext(), accountID, clientMeta(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "all sessions revoked"})
}

func clientMeta(c *fiber.Ctx) service.ClientMeta {
	return service.ClientMeta{
		IP:          c.IP(),
		UserAgent:   c.Get(fiber.HeaderUserAgent),
		Fingerprint: c.Get("X-Device-Fingerprint"),
	}
}

func bearerToken(c *fiber.Ctx) string {
	const prefix = "bearer "
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// respondError maps the service error taxonomy to HTTP statuses. Client
// mistakes get precise codes; everything unexpected is an opaque 500.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateEmail):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already registered"})
	case errors.Is(err, service.ErrAccountLocked):
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{"error": "account temporarily locked"})
	case errors.Is(err, service.ErrAuthenticationFailed):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	case errors.Is(err, service.ErrTokenInvalid), errors.Is(err, service.ErrRefreshFailed):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
	case errors.Is(err, service.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "temporarily unavailable"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
