// Package relayserver implements the reference relay daemon: NATS
// request/reply handlers for device registration, invite publication and
// message forwarding, over a pluggable store. Content is opaque ciphertext
// end to end; the daemon can route it but never read it.
package relayserver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/logging"
	"github.com/privault/privault/internal/relay"
)

// DefaultTokenTTL is how long issued device tokens stay valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

// Server handles the relay wire contract. Handlers take raw request payloads
// and return envelope bytes, so they are testable without a NATS connection;
// Serve binds them to subjects.
type Server struct {
	store    Store
	secret   []byte
	tokenTTL time.Duration
	logger   logging.Logger

	// publish pushes delivery notifications; Serve points it at NATS.
	publish func(subject string, data []byte) error

	// now is a test seam.
	now func() time.Time
}

// New constructs a Server over the given store. secret signs device tokens.
func New(store Store, secret []byte, logger logging.Logger) *Server {
	return &Server{
		store:    store,
		secret:   secret,
		tokenTTL: DefaultTokenTTL,
		logger:   logger,
		publish:  func(string, []byte) error { return nil },
		now:      time.Now,
	}
}

// Serve subscribes the handlers to their subjects. The returned func drains
// the subscriptions.
func (s *Server) Serve(nc *nats.Conn) (func(), error) {
	s.publish = nc.Publish

	type binding struct {
		subject string
		handler func(ctx context.Context, data []byte) []byte
	}
	bindings := []binding{
		{relay.SubjectDeviceRegister, s.HandleDeviceRegister},
		{relay.SubjectInviteRegister, s.HandleInviteRegister},
		{relay.SubjectInviteFetch, s.HandleInviteFetch},
		{relay.SubjectMessageSend, s.HandleMessageSend},
	}

	var subs []*nats.Subscription
	for _, b := range bindings {
		b := b
		sub, err := nc.Subscribe(b.subject, func(m *nats.Msg) {
			reply := b.handler(context.Background(), m.Data)
			if err := m.Respond(reply); err != nil {
				s.logger.Warn(context.Background(), "failed to respond", "subject", b.subject, "error", err)
			}
		})
		if err != nil {
			for _, drained := range subs {
				_ = drained.Unsubscribe()
			}
			return nil, err
		}
		subs = append(subs, sub)
	}

	return func() {
		for _, sub := range subs {
			_ = sub.Drain()
		}
	}, nil
}

// HandleDeviceRegister records the device and issues an access token.
func (s *Server) HandleDeviceRegister(ctx context.Context, data []byte) []byte {
	var req relay.DeviceRegisterRequest
	if err := json.Unmarshal(data, &req); err != nil || req.DeviceID == "" {
		return fail(relay.WireErrInternal)
	}

	if err := s.store.SaveDevice(ctx, req.DeviceID); err != nil {
		s.logger.Error(ctx, "failed to save device", "error", err)
		return fail(relay.WireErrInternal)
	}

	token, err := GenerateToken(req.DeviceID, s.secret, s.tokenTTL)
	if err != nil {
		s.logger.Error(ctx, "failed to issue token", "error", err)
		return fail(relay.WireErrInternal)
	}

	s.logger.Info(ctx, "device registered", "device_id", req.DeviceID)
	return ok(relay.DeviceRegisterResponse{AccessToken: token})
}

// HandleInviteRegister stores an invite record for later fetch by code.
func (s *Server) HandleInviteRegister(ctx context.Context, data []byte) []byte {
	var req relay.InviteRegisterRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fail(relay.WireErrInternal)
	}
	if _, err := GetDeviceIDFromToken(req.AccessToken, s.secret); err != nil {
		return fail(relay.WireErrUnauthorized)
	}

	inv := &relay.InviteRecord{
		Code:         req.Code,
		SharedKeyRef: req.SharedKeyRef,
		ConnectionID: req.ConnectionID,
		ExpiresAt:    req.ExpiresAt,
	}
	if err := s.store.SaveInvite(ctx, inv); err != nil {
		s.logger.Error(ctx, "failed to save invite", "error", err)
		return fail(relay.WireErrInternal)
	}

	s.logger.Info(ctx, "invite registered", "connection_id", req.ConnectionID)
	return ok(nil)
}

// HandleInviteFetch resolves a code. Expired invites are reported as expired,
// never served.
func (s *Server) HandleInviteFetch(ctx context.Context, data []byte) []byte {
	var req relay.InviteFetchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fail(relay.WireErrInternal)
	}

	inv, err := s.store.GetInvite(ctx, req.Code)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fail(relay.WireErrInviteNotFound)
		}
		s.logger.Error(ctx, "failed to load invite", "error", err)
		return fail(relay.WireErrInternal)
	}
	if !s.now().Before(inv.ExpiresAt) {
		return fail(relay.WireErrInviteExpired)
	}

	return ok(relay.InviteFetchResponse{
		SharedKeyRef: inv.SharedKeyRef,
		ConnectionID: inv.ConnectionID,
		ExpiresAt:    inv.ExpiresAt,
	})
}

// HandleMessageSend stores the ciphertext and pushes it on the connection's
// delivery subject.
func (s *Server) HandleMessageSend(ctx context.Context, data []byte) []byte {
	var req relay.MessageSendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fail(relay.WireErrInternal)
	}
	senderID, err := GetDeviceIDFromToken(req.AccessToken, s.secret)
	if err != nil {
		return fail(relay.WireErrUnauthorized)
	}
	// the sender claim comes from the token, not the request body
	if req.SenderID != "" && req.SenderID != senderID {
		return fail(relay.WireErrUnauthorized)
	}

	msg := &relay.Message{
		ID:            uuid.NewString(),
		ConnectionID:  req.ConnectionID,
		SenderID:      senderID,
		CipherContent: req.CipherContent,
		CreatedAt:     s.now(),
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		s.logger.Error(ctx, "failed to save message", "error", err)
		return fail(relay.WireErrInternal)
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fail(relay.WireErrInternal)
	}
	if err := s.publish(relay.DeliverSubject(msg.ConnectionID), raw); err != nil {
		s.logger.Warn(ctx, "failed to push message", "connection_id", msg.ConnectionID, "error", err)
	}

	return ok(msg)
}

func ok(data any) []byte {
	env := relay.Envelope{OK: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fail(relay.WireErrInternal)
		}
		env.Data = raw
	}
	raw, _ := json.Marshal(env)
	return raw
}

func fail(code string) []byte {
	raw, _ := json.Marshal(relay.Envelope{Error: code})
	return raw
}
