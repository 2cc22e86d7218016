package relayserver

import (
	"context"
	"sync"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/relay"
)

// MemoryStore is an in-memory Store for tests and single-node development.
type MemoryStore struct {
	mu       sync.Mutex
	devices  map[string]bool
	invites  map[string]*relay.InviteRecord
	messages []*relay.Message
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices: make(map[string]bool),
		invites: make(map[string]*relay.InviteRecord),
	}
}

func (s *MemoryStore) SaveDevice(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[deviceID] = true
	return nil
}

func (s *MemoryStore) SaveInvite(_ context.Context, inv *relay.InviteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *inv
	s.invites[inv.Code] = &cp
	return nil
}

func (s *MemoryStore) GetInvite(_ context.Context, code string) (*relay.InviteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invites[code]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *MemoryStore) SaveMessage(_ context.Context, msg *relay.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *msg
	s.messages = append(s.messages, &cp)
	return nil
}
