// Package lockout holds the pure brute-force lockout decisions. Counter
// mutation lives in the account repository's atomic updates; this package
// only interprets a snapshot.
package lockout

import (
	"time"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/account/domain"
)

const (
	// DefaultThreshold is the number of consecutive failed logins that locks an account.
	DefaultThreshold = 5
	// DefaultLockDuration is how long a locked account stays locked.
	DefaultLockDuration = 30 * time.Minute
)

// Policy decides lockout state from an account snapshot. Any failed
// authentication against an existing account counts toward Threshold,
// regardless of why it failed.
type Policy struct {
	Threshold    int
	LockDuration time.Duration
}

// NewPolicy returns a Policy with the given knobs; non-positive values fall
// back to the defaults.
func NewPolicy(threshold int, lockDuration time.Duration) Policy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if lockDuration <= 0 {
		lockDuration = DefaultLockDuration
	}
	return Policy{Threshold: threshold, LockDuration: lockDuration}
}

// IsLocked reports whether the account's lock window is active at now.
func (p Policy) IsLocked(a *domain.Account, now time.Time) bool {
	return a != nil && a.LockedUntil != nil && a.LockedUntil.After(now)
}

// Locks reports whether an attempt count returned by the store's atomic
// increment has reached the threshold. The window began at the moment of that
// increment, not at this check.
func (p Policy) Locks(attempts int) bool {
	return attempts >= p.Threshold
}
