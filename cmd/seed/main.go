// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev account (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	accountdomain "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/domain"
	accountrepo "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/repository"
	catalogdomain "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/catalog/domain"
	catalogrepo "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/catalog/repository"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/config"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/db"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/security"
)

const (
	devEmail    = "dev@example.com"
	devPassword = "Password123"
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
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	accounts := accountrepo.NewPostgresRepository(conn)

	existing, err := accounts.FindByEmail(ctx, devEmail)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %s already exists, nothing to do", devEmail)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("seed: hash: %v", err)
	}

	now := time.Now().UTC()
	acct := &accountdomain.Account{
		ID:            uuid.New().String(),
		Email:         devEmail,
		PasswordHash:  hash,
		Status:        accountdomain.AccountStatusActive,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := accounts.Create(ctx, acct); err != nil {
		log.Fatalf("seed: account: %v", err)
	}
	log.Printf("seed: created account %s (%s)", devEmail, acct.ID)

	books := catalogrepo.NewPostgresRepository(conn)
	samples := []*catalogdomain.Book{
		{Title: "The Go Programming Language", Author: "Alan Donovan", ISBN: "9780134190440", PriceCents: 3999, Stock: 12},
		{Title: "Learning Go", Author: "Jon Bodner", ISBN: "9781492077213", PriceCents: 4299, Stock: 7},
		{Title: "Concurrency in Go", Author: "Katherine Cox-Buday", ISBN: "9781491941195", PriceCents: 3499, Stock: 4},
	}
	for _, b := range samples {
		b.ID = uuid.New().String()
		b.CreatedAt = now
		b.UpdatedAt = now
		if err := books.Create(ctx, b); err != nil {
			log.Fatalf("seed: book %s: %v", b.ISBN, err)
		}
	}
	log.Printf("seed: created %d books", len(samples))
}
