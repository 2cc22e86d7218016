package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/contacts"
	"github.com/privault/privault/internal/cryptox"
	"github.com/privault/privault/internal/kvstore"
	"github.com/privault/privault/internal/logging"
	"github.com/privault/privault/internal/relay"
	"github.com/privault/privault/internal/vault"
)

// ErrConnectionBlocked is returned by Send for blocked connections.
var ErrConnectionBlocked = errors.New("connection is blocked")

// Service sends, receives and lists secure messages.
type Service struct {
	store    kvstore.Store
	sessions vault.SessionProvider
	contacts *contacts.Service
	relay    relay.Relay
	deviceID string
	logger   logging.Logger

	// now is a test seam.
	now func() time.Time

	mu sync.Mutex
}

// NewService wires messaging to its collaborators. r may be nil, in which case
// every connection uses the local transport.
func NewService(store kvstore.Store, sessions vault.SessionProvider, cs *contacts.Service, r relay.Relay, deviceID string, logger logging.Logger) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		contacts: cs,
		relay:    r,
		deviceID: deviceID,
		logger:   logger,
		now:      time.Now,
	}
}

// transportFor picks the transport per connection: relay when the connection
// has a relay channel and a relay is configured, local otherwise.
func (s *Service) transportFor(conn *contacts.Connection) MessageTransport {
	if s.relay != nil && conn.Linked() {
		return &relayTransport{relay: s.relay, deviceID: s.deviceID, logger: s.logger}
	}
	return localTransport{}
}

// Send encrypts plaintext with the connection's shared key and hands it to the
// transport. The session is re-checked after the transport round-trip: a send
// still in flight when the vault locks is not persisted and fails with
// common.ErrVaultLocked.
func (s *Service) Send(ctx context.Context, connectionID string, plaintext []byte) (*SecureMessage, error) {
	conn, err := s.contacts.Get(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.Status == contacts.StatusBlocked {
		return nil, ErrConnectionBlocked
	}

	cipherContent, err := cryptox.Encrypt(plaintext, conn.SharedKey)
	if err != nil {
		return nil, err
	}

	delivered, relayID, err := s.transportFor(conn).Deliver(ctx, conn, cipherContent)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.Session(); err != nil {
		return nil, err
	}

	msg := &SecureMessage{
		Id:            uuid.NewString(),
		ConnectionID:  conn.Id,
		RelayID:       relayID,
		CipherContent: cipherContent,
		SentAt:        s.now(),
		Direction:     DirectionOutgoing,
		Delivered:     delivered,
	}
	if err := s.append(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.contacts.TouchLastMessage(ctx, conn.Id, msg.SentAt); err != nil {
		s.logger.Warn(ctx, "failed to update last message time", "connection_id", conn.Id, "error", err)
	}

	s.logger.Info(ctx, "message sent", "connection_id", conn.Id, "delivered", delivered)
	return msg, nil
}

// Receive stores an incoming relay message for its connection. Ciphertext that
// fails authentication is stored flagged undecryptable rather than dropped, so
// tampering stays visible to the user. Duplicate relay ids and this device's
// own echoes are ignored.
func (s *Service) Receive(ctx context.Context, m relay.Message) error {
	if m.SenderID == s.deviceID {
		return nil
	}

	conn, err := s.contacts.FindByRemoteConnectionID(ctx, m.ConnectionID)
	if err != nil {
		return fmt.Errorf("no connection for incoming message: %w", err)
	}

	msg := &SecureMessage{
		Id:            uuid.NewString(),
		ConnectionID:  conn.Id,
		RelayID:       m.ID,
		CipherContent: m.CipherContent,
		SentAt:        m.CreatedAt,
		Direction:     DirectionIncoming,
		Delivered:     true,
	}

	plaintext, err := cryptox.Decrypt(m.CipherContent, conn.SharedKey)
	if err != nil {
		if !errors.Is(err, common.ErrAuthenticationFailed) {
			return err
		}
		msg.Undecryptable = true
		s.logger.Warn(ctx, "incoming message failed authentication", "connection_id", conn.Id, "relay_id", m.ID)
	} else {
		common.WipeByteArray(plaintext)
	}

	s.mu.Lock()
	msgs, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for _, existing := range msgs {
		if existing.RelayID != "" && existing.RelayID == m.ID {
			s.mu.Unlock()
			return nil
		}
	}
	msgs = append(msgs, msg)
	err = s.save(ctx, msgs)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if !msg.Undecryptable {
		if err := s.contacts.MarkAccepted(ctx, conn.Id); err != nil {
			s.logger.Warn(ctx, "failed to mark connection accepted", "connection_id", conn.Id, "error", err)
		}
	}
	if err := s.contacts.TouchLastMessage(ctx, conn.Id, msg.SentAt); err != nil {
		s.logger.Warn(ctx, "failed to update last message time", "connection_id", conn.Id, "error", err)
	}
	return nil
}

// History returns the conversation in SentAt order, oldest first. Each message
// is decrypted on demand; one bad message yields the placeholder without
// aborting the rest.
func (s *Service) History(ctx context.Context, connectionID string) ([]*HistoryItem, error) {
	conn, err := s.contacts.Get(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	msgs, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	items := make([]*HistoryItem, 0, len(msgs))
	for _, m := range msgs {
		if m.ConnectionID != connectionID {
			continue
		}
		item := &HistoryItem{Message: m, Text: UndecryptablePlaceholder}
		if !m.Undecryptable {
			if plaintext, err := cryptox.Decrypt(m.CipherContent, conn.SharedKey); err == nil {
				item.Text = string(plaintext)
			}
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Message.SentAt.Before(items[j].Message.SentAt)
	})
	return items, nil
}

// MarkRead flags a stored message as read. Read state is local only.
func (s *Service) MarkRead(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if m.Id == messageID {
			m.Read = true
			return s.save(ctx, msgs)
		}
	}
	return common.ErrorNotFound
}

// Start subscribes to incoming pushes for every linked connection and routes
// them through Receive. The returned func cancels all subscriptions.
func (s *Service) Start(ctx context.Context) (func(), error) {
	if s.relay == nil {
		return func() {}, nil
	}

	conns, err := s.contacts.List(ctx)
	if err != nil {
		return nil, err
	}

	var unsubs []func()
	for _, conn := range conns {
		if !conn.Linked() {
			continue
		}
		unsub, err := s.relay.Subscribe(conn.RemoteConnectionID, func(m relay.Message) {
			if err := s.Receive(ctx, m); err != nil {
				s.logger.Warn(ctx, "failed to store incoming message", "error", err)
			}
		})
		if err != nil {
			for _, u := range unsubs {
				u()
			}
			return nil, err
		}
		unsubs = append(unsubs, unsub)
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
	}, nil
}

// load and save expect s.mu to be held.

func (s *Service) load(ctx context.Context) ([]*SecureMessage, error) {
	raw, err := s.store.Get(ctx, kvstore.KeyMessages)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var msgs []*SecureMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode message log: %w", err)
	}
	return msgs, nil
}

func (s *Service) save(ctx context.Context, msgs []*SecureMessage) error {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, kvstore.KeyMessages, raw)
}

func (s *Service) append(ctx context.Context, msg *SecureMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.load(ctx)
	if err != nil {
		return err
	}
	return s.save(ctx, append(msgs, msg))
}
