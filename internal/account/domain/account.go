package domain

import (
	"errors"
	"time"
)

// Account is one user's identity record plus the lockout counters the auth
// flows mutate. Accounts are never hard-deleted; deactivation flips Status.
type Account struct {
	ID              string
	Email           string // stored lowercased; unique case-insensitively
	PasswordHash    string
	ExternalSubject string // subject id at an external IdP; empty for local accounts
	Status          AccountStatus
	EmailVerified   bool
	LoginAttempts   int
	LockedUntil     *time.Time // nil when not locked
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusInactive  AccountStatus = "inactive"
	AccountStatusSuspended AccountStatus = "suspended"
)

// Validate validates the account for persistence. Returns an error describing the first validation failure.
func (a *Account) Validate() error {
	if a.Email == "" {
		return errors.New("email is required")
	}
	if a.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if a.Status == "" {
		a.Status = AccountStatusActive
	}
	return nil
}
