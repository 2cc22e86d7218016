// Package relay defines the contract of the optional remote relay: invite
// registration and lookup, ciphertext delivery, and per-connection
// subscriptions. The vault only ever hands the relay opaque key references
// and ciphertext; plaintext and PINs never cross this boundary.
//
// Implementations: NATSRelay (production wire), MemoryRelay (in-process, for
// tests and local development). The relay is optional everywhere — callers
// must degrade gracefully when it is absent or unreachable.
package relay

import (
	"context"
	"time"
)

// Message is a ciphertext envelope delivered through the relay.
type Message struct {
	ID            string    `json:"id"`
	ConnectionID  string    `json:"connection_id"`
	SenderID      string    `json:"sender_id"`
	CipherContent []byte    `json:"cipher_content"`
	CreatedAt     time.Time `json:"created_at"`
}

// InviteRecord is the relay-side view of a pending invite. SharedKeyRef is
// opaque to the relay; ConnectionID is the routing channel both parties use
// once the invite is redeemed.
type InviteRecord struct {
	Code         string    `json:"code"`
	SharedKeyRef []byte    `json:"shared_key_ref"`
	ConnectionID string    `json:"connection_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Relay is the collaborator contract. All calls are bounded by their context;
// exceeding the deadline yields common.ErrTimeout. No implementation retries
// automatically — retries are a caller decision.
type Relay interface {
	// RegisterInvite publishes an invite so the counterpart can fetch the
	// shared key reference during redemption.
	RegisterInvite(ctx context.Context, inv *InviteRecord) error

	// FetchInvite resolves a code. Unknown codes yield common.ErrInviteNotFound,
	// expired ones common.ErrInviteExpired.
	FetchInvite(ctx context.Context, code string) (*InviteRecord, error)

	// SendMessage delivers ciphertext on the connection channel and returns
	// the relay-assigned message envelope as the delivery acknowledgment.
	SendMessage(ctx context.Context, connectionID, senderID string, cipherContent []byte) (*Message, error)

	// Subscribe registers a handler for messages on the connection channel
	// and returns an unsubscribe function. Handlers also see the caller's own
	// messages; filter by SenderID.
	Subscribe(connectionID string, fn func(Message)) (func(), error)

	// Close releases the underlying transport.
	Close()
}
