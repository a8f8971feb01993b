package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/audit/domain"
)

// PostgresRepository persists audit entries over database/sql (pgx stdlib driver).
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends the entry. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	query := `
		INSERT INTO audit_log (id, account_id, event_type, description, ip_address, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		sql.NullString{String: e.AccountID, Valid: e.AccountID != ""},
		e.EventType, e.Description, e.IPAddress,
		sql.NullString{String: e.UserAgent, Valid: e.UserAgent != ""},
		sql.NullString{String: e.Metadata, Valid: e.Metadata != ""},
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListByAccount returns audit entries for the account, newest first, paginated
// by limit and offset.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*domain.Entry, error) {
	query := `
		SELECT id, account_id, event_type, description, ip_address, user_agent, metadata, created_at
		FROM audit_log
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		var (
			e        domain.Entry
			acct, ua, meta sql.NullString
		)
		if err := rows.Scan(&e.ID, &acct, &e.EventType, &e.Description, &e.IPAddress, &ua, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.AccountID, e.UserAgent, e.Metadata = acct.String, ua.String, meta.String
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
