package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_DeterministicPerSalt(t *testing.T) {
	secret := []byte("1234")
	salt := GenerateSalt()

	k1 := DeriveKey(secret, salt)
	k2 := DeriveKey(secret, salt)
	require.Len(t, k1, KeySize)
	assert.Equal(t, k1, k2, "same secret+salt must derive the same key")

	k3 := DeriveKey(secret, GenerateSalt())
	assert.NotEqual(t, k1, k3, "a fresh salt must change the key")

	k4 := DeriveKey([]byte("4321"), salt)
	assert.NotEqual(t, k1, k4, "a different secret must change the key")
}

func TestMakeVerifier_NeverEqualsKey(t *testing.T) {
	key := DeriveKey([]byte("1234"), GenerateSalt())
	v := MakeVerifier(key)

	require.Len(t, v, 32)
	assert.NotEqual(t, key, v)

	// stable for the same key
	assert.Equal(t, v, MakeVerifier(key))
}

func TestGenerateSalt_SizeAndFreshness(t *testing.T) {
	a := GenerateSalt()
	b := GenerateSalt()
	require.Len(t, a, SaltSize)
	assert.NotEqual(t, a, b)
}
