package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/domain"
)

const uniqueViolation = "23505"

// PostgresRepository persists accounts over database/sql (pgx stdlib driver).
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, email, password_hash, external_subject, status, email_verified,
	login_attempts, locked_until, last_login_at, created_at, updated_at`

// FindByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByEmail returns the account with the given email (case-insensitive), or nil if not found.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// ExistsByEmail reports whether an account with the given email exists.
func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE LOWER(email) = LOWER($1))`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// Create persists the account. The account must have ID set. Returns
// ErrDuplicateEmail when the unique email index rejects the insert, so the
// uniqueness check and the write are one atomic operation.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, external_subject, status, email_verified,
			login_attempts, locked_until, last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Email, a.PasswordHash,
		sql.NullString{String: a.ExternalSubject, Valid: a.ExternalSubject != ""},
		string(a.Status), a.EmailVerified, a.LoginAttempts,
		timeToNullTime(a.LockedUntil), timeToNullTime(a.LastLoginAt),
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RecordFailedAttempt increments the counter and applies the lock window in a
// single conditional UPDATE, so concurrent failed logins cannot under-count.
// An already-active lock is never extended; an expired one is replaced.
func (r *PostgresRepository) RecordFailedAttempt(ctx context.Context, id string, threshold int, lockDuration time.Duration) (int, error) {
	now := time.Now().UTC()
	lockedUntil := now.Add(lockDuration)
	query := `
		UPDATE accounts
		SET login_attempts = login_attempts + 1,
		    locked_until = CASE
		        WHEN login_attempts + 1 >= $2 AND (locked_until IS NULL OR locked_until <= $4)
		        THEN $3
		        ELSE locked_until
		    END,
		    updated_at = $4
		WHERE id = $1
		RETURNING login_attempts
	`
	var attempts int
	err := r.db.QueryRowContext(ctx, query, id, threshold, lockedUntil, now).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return attempts, nil
}

// RecordSuccess atomically resets the counter, clears any lock, and stamps last_login_at.
func (r *PostgresRepository) RecordSuccess(ctx context.Context, id string) error {
	now := time.Now().UTC()
	query := `
		UPDATE accounts
		SET login_attempts = 0, locked_until = NULL, last_login_at = $2, updated_at = $2
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UnlockExpired clears lockouts whose window passed before now and resets
// their counters. Returns the number of accounts unlocked.
func (r *PostgresRepository) UnlockExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE accounts
		SET login_attempts = 0, locked_until = NULL, updated_at = $1
		WHERE locked_until IS NOT NULL AND locked_until < $1
	`
	res, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*domain.Account, error) {
	var (
		a           domain.Account
		extSubject  sql.NullString
		status      string
		lockedUntil sql.NullTime
		lastLoginAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &extSubject, &status, &a.EmailVerified,
		&a.LoginAttempts, &lockedUntil, &lastLoginAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	a.ExternalSubject = extSubject.String
	a.Status = domain.AccountStatus(status)
	a.LockedUntil = nullTimeToPtr(lockedUntil)
	a.LastLoginAt = nullTimeToPtr(lastLoginAt)
	return &a, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
