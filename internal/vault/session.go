package vault

import (
	"sync"

	"github.com/privault/privault/internal/common"
)

// Session is the capability handle for the in-memory session key. The vault
// hands it to the object store, contact exchange and messaging layers; none of
// them keep a key copy of their own. Lock() revokes the capability, so stale
// handles fail deterministically instead of silently using a revoked key.
type Session struct {
	mu      sync.RWMutex
	key     []byte
	revoked bool
}

func newSession(key []byte) *Session {
	cp := make([]byte, len(key))
	copy(cp, key)
	return &Session{key: cp}
}

// Key returns a copy of the session key, or common.ErrVaultLocked once the
// session has been revoked. The returned bytes are for immediate use only.
func (s *Session) Key() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.revoked {
		return nil, common.ErrVaultLocked
	}
	cp := make([]byte, len(s.key))
	copy(cp, s.key)
	return cp, nil
}

// Valid reports whether the session is still usable.
func (s *Session) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.revoked
}

// revoke wipes the key material and marks the session unusable.
func (s *Session) revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revoked {
		return
	}
	common.WipeByteArray(s.key)
	s.key = nil
	s.revoked = true
}

// SessionProvider vends the current session. Components depending on the
// session key hold a provider, never a key copy they separately manage.
type SessionProvider interface {
	// Session returns the current unlocked session or common.ErrVaultLocked.
	Session() (*Session, error)
}
