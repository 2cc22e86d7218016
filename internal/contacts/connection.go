// Package contacts implements the contact exchange protocol: invite codes,
// pending invites with expiry, and the connections that carry each contact's
// shared message key. Connections and invites are persisted encrypted with
// the session key because they contain shared secrets.
package contacts

import "time"

// Status is the lifecycle state of a connection.
type Status string

const (
	// StatusPending marks an invite the counterpart has not redeemed yet.
	StatusPending Status = "pending"
	// StatusAccepted marks an established contact.
	StatusAccepted Status = "accepted"
	// StatusBlocked refuses further sends on the connection.
	StatusBlocked Status = "blocked"
)

// Connection is a contact relationship. SharedKey is generated with a CSPRNG
// and is never derivable from the PIN; it is the sole secret protecting this
// contact's messages.
type Connection struct {
	Id                 string     `json:"id"`
	DisplayName        string     `json:"display_name"`
	SharedKey          []byte     `json:"shared_key"`
	RemoteConnectionID string     `json:"remote_connection_id,omitempty"`
	InviteCode         string     `json:"invite_code,omitempty"`
	Status             Status     `json:"status"`
	AddedAt            time.Time  `json:"added_at"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
}

// Linked reports whether the connection has a relay channel.
func (c *Connection) Linked() bool { return c.RemoteConnectionID != "" }

// PendingInvite tracks an invite this vault issued and has not seen redeemed.
type PendingInvite struct {
	Code         string    `json:"code"`
	ConnectionID string    `json:"connection_id"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}
