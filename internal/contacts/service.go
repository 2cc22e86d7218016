package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/cryptox"
	"github.com/privault/privault/internal/kvstore"
	"github.com/privault/privault/internal/logging"
	"github.com/privault/privault/internal/relay"
	"github.com/privault/privault/internal/vault"
)

// InviteTTL is how long an issued invite stays redeemable.
const InviteTTL = 24 * time.Hour

// Service implements the contact exchange protocol over the vault's store.
// The relay is optional; without it invites work through out-of-band payloads
// only.
type Service struct {
	store    kvstore.Store
	sessions vault.SessionProvider
	relay    relay.Relay
	deviceID string
	logger   logging.Logger

	// now is a test seam.
	now func() time.Time

	mu sync.Mutex
}

// NewService wires the protocol to its collaborators. relay may be nil.
func NewService(store kvstore.Store, sessions vault.SessionProvider, r relay.Relay, deviceID string, logger logging.Logger) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		relay:    r,
		deviceID: deviceID,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateInvite issues a new invite: a short readable code, a fresh 256-bit
// shared key, a pending connection, and a 24-hour expiry. When a relay is
// configured the invite is registered there so the counterpart can fetch the
// key by code; if the relay is unreachable the invite stays valid for
// out-of-band transfer and the send degrades with a warning only.
func (s *Service) CreateInvite(ctx context.Context, label string) (*Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, err := s.loadConnections(ctx)
	if err != nil {
		return nil, err
	}
	invites, err := s.loadInvites(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	invites = sweepInvites(invites, now)

	conn := &Connection{
		Id:          uuid.NewString(),
		DisplayName: label,
		SharedKey:   common.GenerateRandByteArray(cryptox.KeySize),
		InviteCode:  NewInviteCode(),
		Status:      StatusPending,
		AddedAt:     now,
	}

	inv := &Invite{
		Code:       conn.InviteCode,
		SharedKey:  conn.SharedKey,
		ExpiresAt:  now.Add(InviteTTL),
		Connection: conn,
	}

	if s.relay != nil {
		rec := &relay.InviteRecord{
			Code:         inv.Code,
			SharedKeyRef: inv.SharedKey,
			ConnectionID: conn.Id,
			ExpiresAt:    inv.ExpiresAt,
		}
		if err := s.relay.RegisterInvite(ctx, rec); err != nil {
			s.logger.Warn(ctx, "invite not registered with relay, falling back to out-of-band transfer", "error", err)
		} else {
			conn.RemoteConnectionID = conn.Id
			inv.Registered = true
		}
	}

	conns = append(conns, conn)
	invites = append(invites, &PendingInvite{
		Code:         inv.Code,
		ConnectionID: conn.Id,
		CreatedAt:    now,
		ExpiresAt:    inv.ExpiresAt,
	})

	if err := s.saveConnections(ctx, conns); err != nil {
		return nil, err
	}
	if err := s.saveInvites(ctx, invites); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "invite created", "connection_id", conn.Id, "registered", inv.Registered)
	return inv, nil
}

// RedeemInvite turns a counterpart's code (or full out-of-band payload) into
// an accepted connection. Expired codes fail with ErrInviteExpired even if a
// record is still present; unknown codes with no embedded key fail with
// ErrInviteNotFound — a bare code never produces a fabricated key the inviter
// would not share. Redeeming the same still-valid code twice returns the
// existing connection instead of creating a duplicate.
func (s *Service) RedeemInvite(ctx context.Context, codeOrPayload, label string) (*Connection, error) {
	code, key, expiresAt, err := ParseTransferPayload(codeOrPayload)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conns, err := s.loadConnections(ctx)
	if err != nil {
		return nil, err
	}

	for _, c := range conns {
		if c.InviteCode == code && c.Status != StatusPending {
			return c, nil
		}
	}

	now := s.now()
	conn := &Connection{
		Id:          uuid.NewString(),
		DisplayName: label,
		InviteCode:  code,
		Status:      StatusAccepted,
		AddedAt:     now,
	}

	switch {
	case len(key) > 0:
		// Out-of-band payload: the inviter conveyed the key alongside the code.
		if !now.Before(expiresAt) {
			return nil, common.ErrInviteExpired
		}
		conn.SharedKey = key

	case s.relay != nil:
		rec, err := s.relay.FetchInvite(ctx, code)
		if err != nil {
			return nil, err
		}
		if !now.Before(rec.ExpiresAt) {
			return nil, common.ErrInviteExpired
		}
		conn.SharedKey = rec.SharedKeyRef
		conn.RemoteConnectionID = rec.ConnectionID

	default:
		return nil, common.ErrInviteNotFound
	}

	conns = append(conns, conn)
	if err := s.saveConnections(ctx, conns); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "invite redeemed", "connection_id", conn.Id, "linked", conn.Linked())
	return conn, nil
}

// List returns all connections.
func (s *Service) List(ctx context.Context) ([]*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadConnections(ctx)
}

// Get returns one connection by id.
func (s *Service) Get(ctx context.Context, id string) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, err := s.loadConnections(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		if c.Id == id {
			return c, nil
		}
	}
	return nil, common.ErrorNotFound
}

// FindByRemoteConnectionID resolves the connection behind a relay channel.
func (s *Service) FindByRemoteConnectionID(ctx context.Context, remoteID string) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, err := s.loadConnections(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		if c.RemoteConnectionID != "" && c.RemoteConnectionID == remoteID {
			return c, nil
		}
	}
	return nil, common.ErrorNotFound
}

// Block refuses further sends on the connection.
func (s *Service) Block(ctx context.Context, id string) error {
	return s.update(ctx, id, func(c *Connection) {
		c.Status = StatusBlocked
	})
}

// MarkAccepted flips a pending connection to accepted. The messaging layer
// calls it when the first authenticated message from the counterpart arrives,
// completing the inviter's side of the exchange.
func (s *Service) MarkAccepted(ctx context.Context, id string) error {
	return s.update(ctx, id, func(c *Connection) {
		if c.Status == StatusPending {
			c.Status = StatusAccepted
		}
	})
}

// TouchLastMessage records message activity on the connection.
func (s *Service) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id, func(c *Connection) {
		c.LastMessageAt = &at
	})
}

func (s *Service) update(ctx context.Context, id string, fn func(*Connection)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, err := s.loadConnections(ctx)
	if err != nil {
		return err
	}
	for _, c := range conns {
		if c.Id == id {
			fn(c)
			return s.saveConnections(ctx, conns)
		}
	}
	return common.ErrorNotFound
}

func sweepInvites(invites []*PendingInvite, now time.Time) []*PendingInvite {
	kept := invites[:0]
	for _, inv := range invites {
		if now.Before(inv.ExpiresAt) {
			kept = append(kept, inv)
		}
	}
	return kept
}

// --- encrypted persistence ---

func (s *Service) loadConnections(ctx context.Context) ([]*Connection, error) {
	var conns []*Connection
	if err := s.loadSealed(ctx, kvstore.KeyContacts, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

func (s *Service) saveConnections(ctx context.Context, conns []*Connection) error {
	return s.saveSealed(ctx, kvstore.KeyContacts, conns)
}

func (s *Service) loadInvites(ctx context.Context) ([]*PendingInvite, error) {
	var invites []*PendingInvite
	if err := s.loadSealed(ctx, kvstore.KeyInvites, &invites); err != nil {
		return nil, err
	}
	return invites, nil
}

func (s *Service) saveInvites(ctx context.Context, invites []*PendingInvite) error {
	return s.saveSealed(ctx, kvstore.KeyInvites, invites)
}

func (s *Service) loadSealed(ctx context.Context, key string, v any) error {
	session, err := s.sessions.Session()
	if err != nil {
		return err
	}
	secret, err := session.Key()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	blob, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}

	plaintext, err := cryptox.Decrypt(blob, secret)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	return json.Unmarshal(plaintext, v)
}

func (s *Service) saveSealed(ctx context.Context, key string, v any) error {
	session, err := s.sessions.Session()
	if err != nil {
		return err
	}
	secret, err := session.Key()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	plaintext, err := json.Marshal(v)
	if err != nil {
		return err
	}
	blob, err := cryptox.Encrypt(plaintext, secret)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, key, blob)
}
