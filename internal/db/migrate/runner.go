// Package migrate applies the embedded SQL migrations with golang-migrate.
package migrate

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/db"
)

// ErrNoChange mirrors migrate.ErrNoChange for callers that want to detect a
// no-op run; Run itself swallows it.
var ErrNoChange = migrate.ErrNoChange

func newMigrator(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("open migration target: %w", err)
	}
	return m, nil
}

// Run migrates the database at dsn fully up or fully down. A run with
// nothing left to apply is a no-op, so repeated invocations are safe.
func Run(dsn, direction string) error {
	if dsn == "" {
		return errors.New("database DSN is empty; set DATABASE_URL in the environment or a .env file")
	}
	if direction != "up" && direction != "down" {
		return fmt.Errorf("unknown migration direction %q (want up or down)", direction)
	}

	m, err := newMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if direction == "up" {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
