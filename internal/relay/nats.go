package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/logging"
)

// defaultRequestTimeout bounds a round-trip when no timeout is configured.
const defaultRequestTimeout = 5 * time.Second

// NATSRelay talks to a relay daemon over NATS request/reply. A device token
// is obtained lazily on the first call that needs one.
type NATSRelay struct {
	conn     *nats.Conn
	deviceID string
	timeout  time.Duration
	logger   logging.Logger

	mu          sync.Mutex
	accessToken string
}

// NewNATSRelay connects to the relay at url. The deviceID identifies this
// vault installation to the relay; it carries no secret material. timeout
// bounds every round-trip; a non-positive value selects the default.
func NewNATSRelay(url, deviceID string, timeout time.Duration, logger logging.Logger) (*NATSRelay, error) {
	opts := []nats.Option{
		nats.Name("privault-" + deviceID),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn(context.Background(), "relay disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info(context.Background(), "relay reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay: %w", err)
	}

	return &NATSRelay{conn: conn, deviceID: deviceID, timeout: timeout, logger: logger}, nil
}

func (r *NATSRelay) RegisterInvite(ctx context.Context, inv *InviteRecord) error {
	token, err := r.token(ctx)
	if err != nil {
		return err
	}

	req := InviteRegisterRequest{
		AccessToken:  token,
		Code:         inv.Code,
		SharedKeyRef: inv.SharedKeyRef,
		ConnectionID: inv.ConnectionID,
		ExpiresAt:    inv.ExpiresAt,
	}
	_, err = r.request(ctx, SubjectInviteRegister, req)
	return err
}

func (r *NATSRelay) FetchInvite(ctx context.Context, code string) (*InviteRecord, error) {
	data, err := r.request(ctx, SubjectInviteFetch, InviteFetchRequest{Code: code})
	if err != nil {
		return nil, err
	}

	var resp InviteFetchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("malformed relay response: %w", err)
	}
	return &InviteRecord{
		Code:         code,
		SharedKeyRef: resp.SharedKeyRef,
		ConnectionID: resp.ConnectionID,
		ExpiresAt:    resp.ExpiresAt,
	}, nil
}

func (r *NATSRelay) SendMessage(ctx context.Context, connectionID, senderID string, cipherContent []byte) (*Message, error) {
	token, err := r.token(ctx)
	if err != nil {
		return nil, err
	}

	req := MessageSendRequest{
		AccessToken:   token,
		ConnectionID:  connectionID,
		SenderID:      senderID,
		CipherContent: cipherContent,
	}
	data, err := r.request(ctx, SubjectMessageSend, req)
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed relay response: %w", err)
	}
	return &msg, nil
}

func (r *NATSRelay) Subscribe(connectionID string, fn func(Message)) (func(), error) {
	sub, err := r.conn.Subscribe(DeliverSubject(connectionID), func(m *nats.Msg) {
		var msg Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			r.logger.Warn(context.Background(), "dropping malformed relay message", "error", err)
			return
		}
		fn(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (r *NATSRelay) Close() {
	r.conn.Close()
}

// token returns the cached access token, registering the device on first use.
func (r *NATSRelay) token(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accessToken != "" {
		return r.accessToken, nil
	}

	data, err := r.request(ctx, SubjectDeviceRegister, DeviceRegisterRequest{DeviceID: r.deviceID})
	if err != nil {
		return "", err
	}

	var resp DeviceRegisterResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("malformed relay response: %w", err)
	}
	r.accessToken = resp.AccessToken
	return r.accessToken, nil
}

// request performs one request/reply round-trip and unwraps the envelope.
func (r *NATSRelay) request(ctx context.Context, subject string, payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.callContext(ctx)
	defer cancel()

	reply, err := r.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) ||
			errors.Is(err, nats.ErrNoResponders) {
			return nil, common.ErrTimeout
		}
		return nil, fmt.Errorf("relay request failed: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(reply.Data, &env); err != nil {
		return nil, fmt.Errorf("malformed relay reply: %w", err)
	}
	if !env.OK {
		return nil, wireError(env.Error)
	}
	return env.Data, nil
}

// callContext ensures every relay call carries a deadline so it fails instead
// of hanging. A deadline already present on ctx wins.
func (r *NATSRelay) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	timeout := r.timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func wireError(code string) error {
	switch code {
	case WireErrInviteNotFound:
		return common.ErrInviteNotFound
	case WireErrInviteExpired:
		return common.ErrInviteExpired
	case WireErrUnauthorized:
		return errors.New("relay rejected access token")
	default:
		return fmt.Errorf("relay error: %s", code)
	}
}
