package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashIsSaltedAndVerifiable(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("s3cret!")
	require.NoError(t, err)
	second, err := h.Hash("s3cret!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "each hash must embed its own salt")
	assert.NotEqual(t, "s3cret!", first)
	assert.True(t, h.Verify("s3cret!", first))
	assert.True(t, h.Verify("s3cret!", second))
	assert.False(t, h.Verify("wrong", first))
}

func TestBcryptHasher_MalformedDigestIsMismatch(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	assert.False(t, h.Verify("anything", ""))
	assert.False(t, h.Verify("anything", "not-a-bcrypt-digest"))
	assert.False(t, h.Verify("anything", "$2a$10$short"))
}

func TestNewBcryptHasher_CostFallback(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewBcryptHasher(bcrypt.MinCost).cost)
}

func TestBcryptHasher_LongMultiBytePassword(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	password := strings.Repeat("é", 50) // 100 bytes

	digest, err := h.Hash(password)
	require.NoError(t, err)
	assert.True(t, h.Verify(password, digest))
	assert.False(t, h.Verify(strings.Repeat("e", 50), digest))

	// bytes past the 72nd are not part of the digest
	assert.True(t, h.Verify(strings.Repeat("é", 36)+"tail", digest))
}
