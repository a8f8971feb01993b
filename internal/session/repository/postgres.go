package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/session/domain"
)

// PostgresLedger persists sessions and refresh tokens over database/sql
// (pgx stdlib driver).
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger returns a ledger that uses the given db for persistence.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// CreateSession persists the session. The session must have ID set.
func (r *PostgresLedger) CreateSession(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (id, account_id, access_token_hash, expires_at, revoked, revoked_at,
			ip_address, user_agent, device_fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.AccountID, s.AccessTokenHash, s.ExpiresAt, s.Revoked, timeToNullTime(s.RevokedAt),
		nullStr(s.IPAddress), nullStr(s.UserAgent), nullStr(s.DeviceFingerprint), s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetSessionByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresLedger) GetSessionByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT id, account_id, access_token_hash, expires_at, revoked, revoked_at,
			ip_address, user_agent, device_fingerprint, created_at
		FROM sessions WHERE id = $1
	`
	var (
		s         domain.Session
		revokedAt sql.NullTime
		ip, ua, fp sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.AccountID, &s.AccessTokenHash,
		&s.ExpiresAt, &s.Revoked, &revokedAt, &ip, &ua, &fp, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.RevokedAt = nullTimeToPtr(revokedAt)
	s.IPAddress, s.UserAgent, s.DeviceFingerprint = ip.String, ua.String, fp.String
	return &s, nil
}

// IsSessionValid reports whether a live session backs the given access-artifact hash.
func (r *PostgresLedger) IsSessionValid(ctx context.Context, accessTokenHash string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sessions
			WHERE access_token_hash = $1 AND NOT revoked AND expires_at > $2
		)
	`
	var valid bool
	if err := r.db.QueryRowContext(ctx, query, accessTokenHash, now.UTC()).Scan(&valid); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return valid, nil
}

// RevokeSession marks the session with the given id as revoked. Revoking an
// already-revoked session is a no-op.
func (r *PostgresLedger) RevokeSession(ctx context.Context, id string) error {
	query := `UPDATE sessions SET revoked = TRUE, revoked_at = $2 WHERE id = $1 AND NOT revoked`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// CreateRefreshToken persists a refresh token row. The token must have ID and
// FamilyID set.
func (r *PostgresLedger) CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	return createRefreshToken(ctx, r.db, t)
}

// Rotate atomically revokes the live token matching oldTokenHash within
// next.FamilyID and inserts next. Both writes run in one transaction; a
// concurrent rotation with the same old token sees zero rows updated and
// gets ErrRotationRejected.
func (r *PostgresLedger) Rotate(ctx context.Context, oldTokenHash string, next *domain.RefreshToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	revoke := `
		UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $3
		WHERE family_id = $1 AND token_hash = $2 AND NOT revoked
	`
	res, err := tx.ExecContext(ctx, revoke, next.FamilyID, oldTokenHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrRotationRejected
	}

	if err := createRefreshToken(ctx, tx, next); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RevokeFamily revokes every live token in the rotation family.
func (r *PostgresLedger) RevokeFamily(ctx context.Context, familyID string) error {
	query := `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE family_id = $1 AND NOT revoked`
	if _, err := r.db.ExecContext(ctx, query, familyID, time.Now().UTC()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RevokeAllForAccount revokes every session and refresh token for the account
// in one transaction.
func (r *PostgresLedger) RevokeAllForAccount(ctx context.Context, accountID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET revoked = TRUE, revoked_at = $2 WHERE account_id = $1 AND NOT revoked`,
		accountID, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE account_id = $1 AND NOT revoked`,
		accountID, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func createRefreshToken(ctx context.Context, db execer, t *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, account_id, family_id, token_hash, expires_at, revoked, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := db.ExecContext(ctx, query,
		t.ID, t.AccountID, t.FamilyID, t.TokenHash, t.ExpiresAt, t.Revoked,
		timeToNullTime(t.RevokedAt), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
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
