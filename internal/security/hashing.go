package security

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyPassword is hashed once at startup so login can burn a comparable
// amount of CPU when the account does not exist. Keeps the response shape
// and timing independent of account existence.
const dummyPassword = "correct horse battery staple"

// Hasher hashes and verifies passwords using bcrypt. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	Cost      int
	dummyHash string
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default for interactive login.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	h := &Hasher{Cost: cost}
	if b, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost); err == nil {
		h.dummyHash = string(b)
	}
	return h
}

// Hash produces a bcrypt hash of password suitable for storage.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash. Returns nil on match;
// bcrypt.ErrMismatchedHashAndPassword (or another error) otherwise.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}

// CompareDummy runs a bcrypt comparison against a throwaway hash and always
// reports a mismatch. Called on the unknown-account path so it costs the same
// as a real comparison.
func (h *Hasher) CompareDummy(password []byte) {
	if h.dummyHash == "" {
		return
	}
	_ = bcrypt.CompareHashAndPassword([]byte(h.dummyHash), password)
}
