// Package messaging implements secure messaging between contacts: per-contact
// encryption with the connection's shared key, delivery over a pluggable
// transport, and a local history with lazy decryption. The vault's session key
// never encrypts message content; only the connection key does.
package messaging

import "time"

// Direction of a message relative to this vault.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// SecureMessage is the persisted message record. CipherContent is the
// connection-key ciphertext; the plaintext is never stored.
type SecureMessage struct {
	Id            string    `json:"id"`
	ConnectionID  string    `json:"connection_id"`
	RelayID       string    `json:"relay_id,omitempty"`
	CipherContent []byte    `json:"cipher_content"`
	SentAt        time.Time `json:"sent_at"`
	Direction     Direction `json:"direction"`
	Delivered     bool      `json:"delivered"`
	Read          bool      `json:"read"`
	// Undecryptable marks an incoming message that failed authentication.
	// It is kept rather than dropped so tampering stays visible.
	Undecryptable bool `json:"undecryptable,omitempty"`
}

// UndecryptablePlaceholder is shown in history for messages whose ciphertext
// fails authentication.
const UndecryptablePlaceholder = "[message could not be decrypted]"

// HistoryItem pairs a message record with its decrypted text (or the
// placeholder).
type HistoryItem struct {
	Message *SecureMessage
	Text    string
}
