package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns a SHA-256 hash of the token string, hex-encoded.
// The ledger stores hashes of issued artifacts, never the raw secrets;
// lookups compare hashes, so a leaked database row cannot be replayed.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
