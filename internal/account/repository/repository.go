package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/domain"
)

// ErrDuplicateEmail is returned by Create when the email is already registered.
// The check rides on the storage-level unique index, not an application lookup.
var ErrDuplicateEmail = errors.New("email already registered")

// Repository defines persistence for accounts, including the atomic lockout
// counter updates the login flow depends on.
type Repository interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, a *domain.Account) error

	// RecordFailedAttempt increments login_attempts and, when the new count
	// reaches threshold, sets locked_until = now + lockDuration in the same
	// statement. Returns the new count. Single conditional update, not
	// read-then-write.
	RecordFailedAttempt(ctx context.Context, id string, threshold int, lockDuration time.Duration) (int, error)

	// RecordSuccess resets login_attempts, clears locked_until, and sets
	// last_login_at to now, atomically.
	RecordSuccess(ctx context.Context, id string) error

	// UnlockExpired clears lockouts whose window has passed. Idempotent;
	// safe to run concurrently with logins.
	UnlockExpired(ctx context.Context, now time.Time) (int64, error)
}
