package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/privault/privault/internal/common"
)

// MemoryRelay is an in-process Relay. Two vaults sharing one MemoryRelay can
// exchange invites and messages without any network, which is how the
// two-party scenarios are tested and how local development runs.
type MemoryRelay struct {
	mu          sync.Mutex
	invites     map[string]*InviteRecord
	subscribers map[string]map[int]func(Message)
	nextSubID   int

	// now is a test seam.
	now func() time.Time
}

// NewMemoryRelay returns an empty MemoryRelay.
func NewMemoryRelay() *MemoryRelay {
	return &MemoryRelay{
		invites:     make(map[string]*InviteRecord),
		subscribers: make(map[string]map[int]func(Message)),
		now:         time.Now,
	}
}

func (r *MemoryRelay) RegisterInvite(_ context.Context, inv *InviteRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *inv
	r.invites[inv.Code] = &cp
	return nil
}

func (r *MemoryRelay) FetchInvite(_ context.Context, code string) (*InviteRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invites[code]
	if !ok {
		return nil, common.ErrInviteNotFound
	}
	if !r.now().Before(inv.ExpiresAt) {
		return nil, common.ErrInviteExpired
	}
	cp := *inv
	return &cp, nil
}

func (r *MemoryRelay) SendMessage(_ context.Context, connectionID, senderID string, cipherContent []byte) (*Message, error) {
	msg := Message{
		ID:            uuid.NewString(),
		ConnectionID:  connectionID,
		SenderID:      senderID,
		CipherContent: cipherContent,
		CreatedAt:     r.now(),
	}

	r.mu.Lock()
	handlers := make([]func(Message), 0, len(r.subscribers[connectionID]))
	for _, fn := range r.subscribers[connectionID] {
		handlers = append(handlers, fn)
	}
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(msg)
	}
	return &msg, nil
}

func (r *MemoryRelay) Subscribe(connectionID string, fn func(Message)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subscribers[connectionID] == nil {
		r.subscribers[connectionID] = make(map[int]func(Message))
	}
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[connectionID][id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subscribers[connectionID], id)
	}, nil
}

func (r *MemoryRelay) Close() {}
