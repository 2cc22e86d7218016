package common

import "crypto/rand"

// GenerateRandByteArray returns size bytes from the OS CSPRNG. It panics if
// the random source fails, which on supported platforms indicates a broken
// runtime rather than a recoverable condition.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// This is used to remove sensitive data such as PINs or derived keys from
// memory after use. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
