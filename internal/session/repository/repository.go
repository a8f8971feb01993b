package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/session/domain"
)

// ErrRotationRejected is returned by Rotate when no live token in the family
// matches the presented hash. The caller must treat this as refresh-token
// reuse, a security event.
var ErrRotationRejected = errors.New("refresh rotation rejected")

// Ledger defines persistence for sessions and refresh rotation chains.
type Ledger interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSessionByID(ctx context.Context, id string) (*domain.Session, error)

	// IsSessionValid reports whether a non-revoked, unexpired session exists
	// for the given access-artifact hash.
	IsSessionValid(ctx context.Context, accessTokenHash string, now time.Time) (bool, error)

	RevokeSession(ctx context.Context, id string) error

	// CreateRefreshToken starts or extends a rotation family; the caller
	// assigns FamilyID.
	CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error

	// Rotate revokes the live token in next.FamilyID matching oldTokenHash and
	// inserts next in one transaction, so a crash cannot leave two live tokens
	// in a family and exactly one of two concurrent rotations wins. Returns
	// ErrRotationRejected when the old token is absent or already revoked.
	Rotate(ctx context.Context, oldTokenHash string, next *domain.RefreshToken) error

	// RevokeFamily revokes every token in a rotation family. Used for reuse containment.
	RevokeFamily(ctx context.Context, familyID string) error

	// RevokeAllForAccount revokes every session and refresh token owned by the
	// account. Idempotent.
	RevokeAllForAccount(ctx context.Context, accountID string) error
}
