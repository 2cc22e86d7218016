// Package objects implements the encrypted object store. Objects are
// immutable: payloads and thumbnails are encrypted once on Add and decrypted
// transiently on View; metadata stays plaintext so listing never touches key
// material.
package objects

import "time"

// EncryptedObject is the metadata record for a stored object. The encrypted
// payload and thumbnail live under separate store keys and are never held
// decrypted beyond the duration of a View call.
type EncryptedObject struct {
	Id           string    `json:"id"`
	FileName     string    `json:"file_name"`
	MimeType     string    `json:"mime_type"`
	MimeCategory Category  `json:"mime_category"`
	SizeBytes    int64     `json:"size_bytes"`
	HasThumbnail bool      `json:"has_thumbnail"`
	AddedAt      time.Time `json:"added_at"`
}
