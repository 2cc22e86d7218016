// Package kvstore provides the vault's local persistence surface: a small
// key-value store addressed by fixed namespaced keys (vault-identity,
// vault-files, vault-contacts, ...). Values are opaque bytes; callers decide
// what is encrypted before it gets here.
package kvstore

import "context"

// Store is the persistence contract shared by all vault components.
// Get returns common.ErrorNotFound for missing keys. Delete of a missing key
// is a no-op.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Fixed namespaced keys for the vault's entities. Evolution is additive only.
const (
	KeyIdentity          = "vault-identity"
	KeyDeviceID          = "vault-device-id"
	KeyFiles             = "vault-files"
	KeyContacts          = "vault-contacts"
	KeyInvites           = "vault-invites"
	KeyMessages          = "vault-messages"
	KeyIntrusionLogs     = "vault-intrusion-logs"
	FileBlobPrefix       = "vault-files/"
	FileThumbPrefix      = "vault-files-thumbs/"
	IntrusionImagePrefix = "vault-intrusion-images/"
)
