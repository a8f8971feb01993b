package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountrepo "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/repository"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/audit"
	auditrepo "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/audit/repository"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/auth/lockout"
	authservice "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/auth/service"
	catalogrepo "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/catalog/repository"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/config"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/db"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/security"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/server"
	sessionrepo "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/session/repository"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	tracing, err := otel.NewProvider(ctx, cfg.OTLPEndpoint, "bookstore-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	tracing.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("JWT_PRIVATE_KEY: %v", err)
	}
	public, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}
	codec := security.NewTokenCodec(signer, public, cfg.JWTIssuer, cfg.JWTAudience)

	accounts := accountrepo.NewPostgresRepository(database)
	ledger := sessionrepo.NewPostgresLedger(database)
	auditor := audit.NewLogger(auditrepo.NewPostgresRepository(database))

	authSvc := authservice.NewAuthService(
		accounts,
		ledger,
		security.NewHasher(cfg.BcryptCost),
		codec,
		lockout.NewPolicy(cfg.LockoutThreshold, cfg.LockDuration()),
		auditor,
		cfg.AccessTTL(),
		cfg.RefreshTTL(),
		cfg.PasswordMinLength,
	)

	app := server.New(server.Deps{
		Auth:         authSvc,
		Accounts:     accounts,
		Catalog:      catalogrepo.NewPostgresRepository(database),
		HealthPinger: database,
	})

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
