package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash([]byte("Secret123!"))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotContains(t, hash, "Secret123!")

	assert.NoError(t, h.Compare(hash, []byte("Secret123!")))
	assert.ErrorIs(t, h.Compare(hash, []byte("wrong")), bcrypt.ErrMismatchedHashAndPassword)
}

func TestHasher_CostClamping(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).Cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(1).Cost)
	assert.Equal(t, bcrypt.MaxCost, NewHasher(99).Cost)
}

func TestHasher_CompareDummy(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	// Must not panic and must not succeed for any input.
	h.CompareDummy([]byte("anything"))
	h.CompareDummy(nil)
}

func TestTokenHash(t *testing.T) {
	hash := HashToken("some-refresh-token")
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashToken("some-refresh-token"))
	assert.NotEqual(t, hash, HashToken("other-token"))
}
