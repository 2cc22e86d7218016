package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privault/privault/internal/common"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"short", []byte("hello")},
		{"binary", []byte{0x00, 0xff, 0x10, 0x80, 0x7f}},
	}

	secret := []byte("1234")

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			blob, err := Encrypt(tc.plaintext, secret)
			require.NoError(t, err)

			got, err := Decrypt(blob, secret)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, got)
		})
	}
}

func TestEncrypt_FreshSaltAndNoncePerCall(t *testing.T) {
	secret := []byte("1234")
	b1, err := Encrypt([]byte("same"), secret)
	require.NoError(t, err)
	b2, err := Encrypt([]byte("same"), secret)
	require.NoError(t, err)

	assert.NotEqual(t, b1, b2, "blobs for identical input must differ")
	assert.NotEqual(t, b1[:SaltSize], b2[:SaltSize], "salts must differ")
	assert.NotEqual(t, b1[SaltSize:SaltSize+NonceSize], b2[SaltSize:SaltSize+NonceSize], "nonces must differ")
}

func TestDecrypt_WrongSecretFails(t *testing.T) {
	blob, err := Encrypt([]byte("payload"), []byte("1234"))
	require.NoError(t, err)

	_, err = Decrypt(blob, []byte("9999"))
	assert.ErrorIs(t, err, common.ErrAuthenticationFailed)
}

func TestDecrypt_TamperedByteFails(t *testing.T) {
	if testing.Short() {
		t.Skip("KDF-heavy test")
	}

	blob, err := Encrypt([]byte("x"), []byte("1234"))
	require.NoError(t, err)

	for i := range blob {
		tampered := make([]byte, len(blob))
		copy(tampered, blob)
		tampered[i] ^= 0x01

		_, err := Decrypt(tampered, []byte("1234"))
		assert.ErrorIs(t, err, common.ErrAuthenticationFailed, "flipped byte %d must not verify", i)
	}
}

func TestDecrypt_TruncatedBlobFails(t *testing.T) {
	_, err := Decrypt([]byte("short"), []byte("1234"))
	assert.ErrorIs(t, err, common.ErrAuthenticationFailed)
}
