// Package cryptox implements the vault's key derivation and authenticated
// encryption primitives. A low-entropy secret (the PIN, or a 32-byte shared
// key) is stretched into an AES-256 key with PBKDF2-SHA256; payloads are
// sealed with AES-GCM. Derived keys live only in process memory.
package cryptox

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"

	"github.com/privault/privault/internal/common"
)

const (
	// SaltSize is the per-identity and per-blob salt length.
	SaltSize = 16
	// NonceSize is the AES-GCM nonce length.
	NonceSize = 12
	// KeySize is the derived symmetric key length (AES-256).
	KeySize = 32
	// KDFIterations is the PBKDF2 iteration count. Recomputing per blob is the
	// accepted cost of using a fresh salt for every encryption.
	KDFIterations = 100_000
)

// DeriveKey stretches secret into a 256-bit symmetric key. The salt must be
// freshly random per identity and per encryption operation; reusing a salt
// across two different secrets is a defect.
func DeriveKey(secret, salt []byte) []byte {
	return pbkdf2.Key(secret, salt, KDFIterations, KeySize, sha256.New)
}

// MakeVerifier derives the fixed-length value stored for PIN verification.
// It is a one-way function of the derived key, so the key itself is never
// persisted, compared or logged.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// GenerateSalt returns a fresh random salt of SaltSize bytes.
func GenerateSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}
