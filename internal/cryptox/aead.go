package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/privault/privault/internal/common"
)

// Encrypt seals plaintext with a key derived from secret and returns one
// opaque blob laid out as salt ‖ nonce ‖ ciphertext+tag. Every call draws a
// fresh salt and nonce; calls are independent and stateless.
func Encrypt(plaintext, secret []byte) ([]byte, error) {
	salt := GenerateSalt()
	nonce := common.GenerateRandByteArray(NonceSize)

	key := DeriveKey(secret, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, 0, SaltSize+NonceSize+len(plaintext)+aesgcm.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = aesgcm.Seal(blob, nonce, plaintext, nil)
	return blob, nil
}

// Decrypt splits a blob produced by Encrypt, re-derives the key from the
// embedded salt and opens the ciphertext. A wrong secret, a truncated blob or
// any tampered byte yields common.ErrAuthenticationFailed; garbage is never
// returned silently.
func Decrypt(blob, secret []byte) ([]byte, error) {
	if len(blob) < SaltSize+NonceSize {
		return nil, fmt.Errorf("blob too short: %w", common.ErrAuthenticationFailed)
	}

	salt := blob[:SaltSize]
	nonce := blob[SaltSize : SaltSize+NonceSize]
	ciphertext := blob[SaltSize+NonceSize:]

	key := DeriveKey(secret, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
