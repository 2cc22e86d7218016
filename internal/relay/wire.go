package relay

import (
	"encoding/json"
	"time"
)

// NATS subjects of the relay wire contract. The reference daemon serves these
// same subjects.
const (
	SubjectDeviceRegister = "relay.device.register"
	SubjectInviteRegister = "relay.invite.register"
	SubjectInviteFetch    = "relay.invite.fetch"
	SubjectMessageSend    = "relay.message.send"

	deliverSubjectPrefix = "relay.conn."
)

// DeliverSubject is the per-connection push subject.
func DeliverSubject(connectionID string) string {
	return deliverSubjectPrefix + connectionID
}

// Wire error codes carried in Envelope.Error.
const (
	WireErrInviteNotFound = "invite_not_found"
	WireErrInviteExpired  = "invite_expired"
	WireErrUnauthorized   = "unauthorized"
	WireErrInternal       = "internal"
)

// Envelope is the reply wrapper for all request/reply subjects.
type Envelope struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DeviceRegisterRequest asks the relay for an access token.
type DeviceRegisterRequest struct {
	DeviceID string `json:"device_id"`
}

// DeviceRegisterResponse carries the issued token.
type DeviceRegisterResponse struct {
	AccessToken string `json:"access_token"`
}

// InviteRegisterRequest publishes an invite record.
type InviteRegisterRequest struct {
	AccessToken  string    `json:"access_token"`
	Code         string    `json:"code"`
	SharedKeyRef []byte    `json:"shared_key_ref"`
	ConnectionID string    `json:"connection_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// InviteFetchRequest resolves a code during redemption.
type InviteFetchRequest struct {
	Code string `json:"code"`
}

// InviteFetchResponse is the resolved invite.
type InviteFetchResponse struct {
	SharedKeyRef []byte    `json:"shared_key_ref"`
	ConnectionID string    `json:"connection_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// MessageSendRequest delivers ciphertext on a connection channel.
type MessageSendRequest struct {
	AccessToken   string `json:"access_token"`
	ConnectionID  string `json:"connection_id"`
	SenderID      string `json:"sender_id"`
	CipherContent []byte `json:"cipher_content"`
}
