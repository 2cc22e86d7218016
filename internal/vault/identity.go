package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/privault/privault/internal/kvstore"
)

// Identity is the single per-device vault identity record. It stores only the
// verifier hash and its salt; neither the PIN nor the derived session key is
// ever written to persistent storage.
type Identity struct {
	VerifierHash     []byte     `json:"verifier_hash"`
	VerifierSalt     []byte     `json:"verifier_salt"`
	BiometricEnabled bool       `json:"biometric_enabled"`
	CreatedAt        time.Time  `json:"created_at"`
	LastAccessAt     time.Time  `json:"last_access_at"`
	FailedAttempts   int        `json:"failed_attempts"`
	LockoutUntil     *time.Time `json:"lockout_until,omitempty"`
}

func loadIdentity(ctx context.Context, store kvstore.Store) (*Identity, error) {
	data, err := store.Get(ctx, kvstore.KeyIdentity)
	if err != nil {
		return nil, err
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("failed to decode identity: %w", err)
	}
	return &id, nil
}

func saveIdentity(ctx context.Context, store kvstore.Store, id *Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	return store.Set(ctx, kvstore.KeyIdentity, data)
}
