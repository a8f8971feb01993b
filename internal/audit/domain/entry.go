package domain

import "time"

// Entry is one append-only audit record. Entries are never mutated or
// deleted by the auth core.
type Entry struct {
	ID          string
	AccountID   string // empty when the event has no resolvable account
	EventType   string
	Description string
	IPAddress   string
	UserAgent   string
	Metadata    string
	CreatedAt   time.Time
}
