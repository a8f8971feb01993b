package domain

import "time"

// Session is one active bearer-access grant. Only the hash of the issued
// access artifact is stored, never the raw secret. A session is immutable
// after creation except for the revoked flag.
type Session struct {
	ID                string
	AccountID         string
	AccessTokenHash   string
	ExpiresAt         time.Time
	Revoked           bool
	RevokedAt         *time.Time // nil when not revoked
	IPAddress         string
	UserAgent         string
	DeviceFingerprint string
	CreatedAt         time.Time
}

// RefreshToken is one link in a rotation chain. Every token descended from
// one original issuance shares FamilyID; at most one row per family is live.
type RefreshToken struct {
	ID        string
	AccountID string
	FamilyID  string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	CreatedAt time.Time
}
