// Package server assembles the fiber application: middleware chain and the
// route → handler mapping for every REST surface.
package server

import (
	"github.com/gofiber/fiber/v2"
	recoverer "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	accounthandler "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/handler"
	authhandler "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/auth/handler"
	authservice "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/auth/service"
	cataloghandler "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/catalog/handler"
	catalogrepo "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/catalog/repository"
	serverhandler "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/server/handler"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/server/middleware"
)

// CorrelationHeader carries the request correlation id; generated when the
// client does not send one.
const CorrelationHeader = "X-Correlation-ID"

// Deps holds the service dependencies for the HTTP handlers.
type Deps struct {
	// Auth is the auth service for register/login/refresh/validate/logout
	// and for the Bearer middleware.
	Auth *authservice.AuthService
	// Accounts backs GET /users/me. If nil, the profile routes are not mounted.
	Accounts accounthandler.Finder
	// Catalog backs the /books routes. If nil, the catalog routes are not mounted.
	Catalog catalogrepo.Repository
	// HealthPinger is used by /healthz for readiness (e.g. *sql.DB). If nil,
	// the health check skips the DB ping.
	HealthPinger serverhandler.Pinger
}

// New builds the fiber app with the full middleware chain and routes.
//
// Route → handler mapping:
//   - /healthz            → internal/server/handler
//   - /api/v1/auth/*      → internal/auth/handler
//   - /api/v1/users/*     → internal/account/handler
//   - /api/v1/books/*     → internal/catalog/handler
func New(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "bookstore-auth",
		DisableStartupMessage: true,
	})

	app.Use(recoverer.New())
	app.Use(requestid.New(requestid.Config{Header: CorrelationHeader}))
	app.Use(middleware.Correlation())
	app.Use(middleware.Trace())
	if deps.Auth != nil {
		app.Use(middleware.Auth(deps.Auth))
	}

	serverhandler.NewHealthHandler(deps.HealthPinger).Register(app)

	api := app.Group("/api/v1")
	if deps.Auth != nil {
		authhandler.NewAuthHandler(deps.Auth).Register(api.Group("/auth"))
	}
	if deps.Accounts != nil {
		accounthandler.NewProfileHandler(deps.Accounts).Register(api.Group("/users"))
	}
	if deps.Catalog != nil {
		cataloghandler.NewCatalogHandler(deps.Catalog).Register(api.Group("/books"))
	}

	return app
}
