package relayserver

import (
	"context"

	"github.com/privault/privault/internal/relay"
)

// Store is the daemon's persistence contract. The relay never sees plaintext:
// shared key references and message content arrive opaque and leave opaque.
type Store interface {
	// SaveDevice records a registered device id. Re-registration is a no-op.
	SaveDevice(ctx context.Context, deviceID string) error

	// SaveInvite stores an invite record, replacing any record with the same
	// code.
	SaveInvite(ctx context.Context, inv *relay.InviteRecord) error

	// GetInvite returns the record for a code or common.ErrorNotFound.
	GetInvite(ctx context.Context, code string) (*relay.InviteRecord, error)

	// SaveMessage appends a delivered message for audit and late fetch.
	SaveMessage(ctx context.Context, msg *relay.Message) error
}
