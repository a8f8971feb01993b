// Package handler holds server-level HTTP handlers (health checks).
package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports storage reachability (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves readiness for Kubernetes, load balancers, and CI.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler returns a HealthHandler. db may be nil, in which case the
// DB ping is skipped.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Register mounts the health route on r.
func (h *HealthHandler) Register(r fiber.Router) {
	r.Get("/healthz", h.check)
}

func (h *HealthHandler) check(c *fiber.Ctx) error {
	if h.db != nil {
		if err := h.db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not_serving"})
		}
	}
	return c.JSON(fiber.Map{"status": "serving"})
}
