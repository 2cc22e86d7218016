package messaging

import (
	"context"

	"github.com/privault/privault/internal/contacts"
	"github.com/privault/privault/internal/logging"
	"github.com/privault/privault/internal/relay"
)

// MessageTransport moves ciphertext toward the counterpart. Implementations
// never see plaintext or the connection key.
type MessageTransport interface {
	// Deliver attempts delivery and reports whether it succeeded, plus the
	// relay-assigned message id when there is one. Transport unavailability is
	// not an error: the message stays stored undelivered.
	Deliver(ctx context.Context, conn *contacts.Connection, cipherContent []byte) (delivered bool, relayID string, err error)
}

// localTransport serves connections without a relay channel. The ciphertext
// reaches the counterpart out of band, so the message counts as delivered by
// convention.
type localTransport struct{}

func (localTransport) Deliver(context.Context, *contacts.Connection, []byte) (bool, string, error) {
	return true, "", nil
}

// relayTransport pushes ciphertext through the relay. A failed or timed-out
// send degrades to stored-undelivered instead of failing the operation.
type relayTransport struct {
	relay    relay.Relay
	deviceID string
	logger   logging.Logger
}

func (t *relayTransport) Deliver(ctx context.Context, conn *contacts.Connection, cipherContent []byte) (bool, string, error) {
	msg, err := t.relay.SendMessage(ctx, conn.RemoteConnectionID, t.deviceID, cipherContent)
	if err != nil {
		t.logger.Warn(ctx, "relay delivery failed, message kept undelivered", "connection_id", conn.Id, "error", err)
		return false, "", nil
	}
	return true, msg.ID, nil
}
