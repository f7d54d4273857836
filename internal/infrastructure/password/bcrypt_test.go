package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHash_SaltedAndVerifiable(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(MinCost)
	first, err := h.Hash("correct horse")
	require.NoError(t, err)
	second, err := h.Hash("correct horse")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("correct horse", first))
	assert.True(t, h.Verify("correct horse", second))
	assert.False(t, h.Verify("wrong horse", first))
}

func TestNewBcryptHasher_RaisesLowCost(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(4)
	assert.Equal(t, MinCost, h.Cost())

	hashed, err := h.Hash("secret1")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, MinCost, cost)
}

func TestVerify_MalformedHash(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(MinCost)
	assert.False(t, h.Verify("secret", ""))
	assert.False(t, h.Verify("secret", "not-a-bcrypt-hash"))
}
