package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/server/middleware"
)

func TestNew_HealthRoute(t *testing.T) {
	app := New(Deps{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestNew_CorrelationID(t *testing.T) {
	app := New(Deps{})

	t.Run("generated when absent", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.Header.Get(CorrelationHeader) == "" {
			t.Error("response should carry a generated correlation id")
		}
	})

	t.Run("echoed when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(CorrelationHeader, "corr-123")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if got := resp.Header.Get(CorrelationHeader); got != "corr-123" {
			t.Errorf("correlation id = %q, want corr-123", got)
		}
	})

	t.Run("threaded into request context", func(t *testing.T) {
		app := New(Deps{})
		app.Get("/whoami-correlation", func(c *fiber.Ctx) error {
			id, _ := middleware.GetCorrelationID(c.UserContext())
			return c.SendString(id)
		})

		req := httptest.NewRequest(http.MethodGet, "/whoami-correlation", nil)
		req.Header.Set(CorrelationHeader, "corr-456")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if string(body) != "corr-456" {
			t.Errorf("context correlation id = %q, want corr-456", body)
		}
	})
}

func TestNew_UnmountedRoutes(t *testing.T) {
	app := New(Deps{})

	for _, path := range []string{"/api/v1/auth/login", "/api/v1/users/me", "/api/v1/books/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test %s: %v", path, err)
		}
		if resp.StatusCode != fiber.StatusNotFound && resp.StatusCode != fiber.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 404/405", path, resp.StatusCode)
		}
	}
}
