// Package vault implements the vault authentication state machine: PIN setup,
// unlock with failed-attempt counting and lockout, idle auto-lock, and the
// session-key capability handed to the other components.
package vault

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/cryptox"
	"github.com/privault/privault/internal/kvstore"
	"github.com/privault/privault/internal/logging"
)

// State describes the externally visible vault state.
type State int

const (
	StateUninitialized State = iota
	StateLocked
	StateLockedOut
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLocked:
		return "locked"
	case StateLockedOut:
		return "locked out"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// UnlockObserver is notified after every failed unlock attempt. The intrusion
// hook implements it; observers must never block or alter the unlock flow.
type UnlockObserver interface {
	OnUnlockFailed(fingerprint string)
}

// Config holds the state machine's tunables.
type Config struct {
	MinPINLength    int
	MaxAttempts     int
	LockoutDuration time.Duration
	IdleTimeout     time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinPINLength:    4,
		MaxAttempts:     5,
		LockoutDuration: 30 * time.Minute,
		IdleTimeout:     5 * time.Minute,
	}
}

// Vault owns the identity record and the live session key. Only one unlocked
// session exists at a time; concurrent unlock attempts are rejected with
// common.ErrOperationInProgress rather than queued.
type Vault struct {
	store  kvstore.Store
	cfg    Config
	logger logging.Logger

	// now is a test seam.
	now func() time.Time

	mu           sync.Mutex
	unlocking    bool
	session      *Session
	lastActivity time.Time
	observers    []UnlockObserver
}

// New constructs a Vault over the given store.
func New(store kvstore.Store, cfg Config, logger logging.Logger) *Vault {
	return &Vault{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers an observer for failed unlock attempts.
func (v *Vault) Subscribe(o UnlockObserver) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.observers = append(v.observers, o)
}

// Status reports the current state.
func (v *Vault) Status(ctx context.Context) (State, error) {
	v.mu.Lock()
	unlocked := v.session != nil && v.session.Valid()
	v.mu.Unlock()
	if unlocked {
		return StateUnlocked, nil
	}

	id, err := loadIdentity(ctx, v.store)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return StateUninitialized, nil
		}
		return StateLocked, err
	}
	if id.LockoutUntil != nil && v.now().Before(*id.LockoutUntil) {
		return StateLockedOut, nil
	}
	return StateLocked, nil
}

// Setup initializes the vault with a new PIN and returns an unlocked session.
func (v *Vault) Setup(ctx context.Context, pin, confirm string) (*Session, error) {
	if len(pin) < v.cfg.MinPINLength {
		return nil, common.ErrPINTooShort
	}
	if pin != confirm {
		return nil, common.ErrPINMismatch
	}

	if _, err := loadIdentity(ctx, v.store); err == nil {
		return nil, common.ErrAlreadyInitialized
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	salt := cryptox.GenerateSalt()
	key := cryptox.DeriveKey([]byte(pin), salt)
	defer common.WipeByteArray(key)

	now := v.now()
	id := &Identity{
		VerifierHash: cryptox.MakeVerifier(key),
		VerifierSalt: salt,
		CreatedAt:    now,
		LastAccessAt: now,
	}
	if err := saveIdentity(ctx, v.store, id); err != nil {
		return nil, fmt.Errorf("failed to save identity: %w", err)
	}

	v.logger.Info(ctx, "vault initialized")

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.establishSession(key), nil
}

// Unlock verifies the PIN against the stored verifier. On mismatch it counts
// the attempt, notifies observers and, past MaxAttempts, starts the lockout
// cooldown. A correct PIN during the cooldown still fails.
func (v *Vault) Unlock(ctx context.Context, pin string) (*Session, error) {
	v.mu.Lock()
	if v.unlocking {
		v.mu.Unlock()
		return nil, common.ErrOperationInProgress
	}
	v.unlocking = true
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.unlocking = false
		v.mu.Unlock()
	}()

	id, err := loadIdentity(ctx, v.store)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotInitialized
		}
		return nil, err
	}

	now := v.now()
	if id.LockoutUntil != nil && now.Before(*id.LockoutUntil) {
		return nil, &LockedOutError{Until: *id.LockoutUntil}
	}

	key := cryptox.DeriveKey([]byte(pin), id.VerifierSalt)
	candidate := cryptox.MakeVerifier(key)

	id.LastAccessAt = now

	if subtle.ConstantTimeCompare(candidate, id.VerifierHash) == 1 {
		id.FailedAttempts = 0
		id.LockoutUntil = nil
		if err := saveIdentity(ctx, v.store, id); err != nil {
			common.WipeByteArray(key)
			return nil, fmt.Errorf("failed to save identity: %w", err)
		}

		v.mu.Lock()
		s := v.establishSession(key)
		v.mu.Unlock()
		common.WipeByteArray(key)

		v.logger.Info(ctx, "vault unlocked")
		return s, nil
	}
	common.WipeByteArray(key)

	id.FailedAttempts++

	var unlockErr error
	if id.FailedAttempts >= v.cfg.MaxAttempts {
		until := now.Add(v.cfg.LockoutDuration)
		id.LockoutUntil = &until
		unlockErr = &LockedOutError{Until: until}
		v.logger.Warn(ctx, "vault locked out", "failed_attempts", id.FailedAttempts)
	} else {
		unlockErr = &BadPINError{AttemptsRemaining: v.cfg.MaxAttempts - id.FailedAttempts}
		v.logger.Warn(ctx, "failed unlock attempt", "failed_attempts", id.FailedAttempts)
	}

	if err := saveIdentity(ctx, v.store, id); err != nil {
		return nil, fmt.Errorf("failed to save identity: %w", err)
	}

	v.notifyUnlockFailed(attemptFingerprint(candidate))
	return nil, unlockErr
}

// Lock discards the in-memory session key immediately. Stale session handles
// fail with common.ErrVaultLocked from then on.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropSession()
}

// dropSession must be called with v.mu held.
func (v *Vault) dropSession() {
	if v.session != nil {
		v.session.revoke()
		v.session = nil
	}
}

// Session returns the current session handle, satisfying SessionProvider.
func (v *Vault) Session() (*Session, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.session == nil || !v.session.Valid() {
		return nil, common.ErrVaultLocked
	}
	return v.session, nil
}

// Touch records user interaction for the idle auto-lock timer.
func (v *Vault) Touch() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastActivity = v.now()
}

// StartAutoLock launches the idle watchdog. The vault locks once IdleTimeout
// elapses without a Touch. Relay round-trips do not count as interaction.
func (v *Vault) StartAutoLock(ctx context.Context) {
	interval := v.cfg.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if v.idleExpired() {
					v.logger.Info(ctx, "auto-locking after idle timeout")
					v.Lock()
				}
			}
		}
	}()
}

func (v *Vault) idleExpired() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.session == nil || !v.session.Valid() {
		return false
	}
	return v.now().Sub(v.lastActivity) >= v.cfg.IdleTimeout
}

// SetBiometric toggles the biometric flag on the identity record.
func (v *Vault) SetBiometric(ctx context.Context, enabled bool) error {
	id, err := loadIdentity(ctx, v.store)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrNotInitialized
		}
		return err
	}
	id.BiometricEnabled = enabled
	return saveIdentity(ctx, v.store, id)
}

// Erase locks the vault and deletes the identity record. This is the only way
// the identity is ever removed.
func (v *Vault) Erase(ctx context.Context) error {
	v.Lock()
	return v.store.Delete(ctx, kvstore.KeyIdentity)
}

// establishSession must be called with v.mu held.
func (v *Vault) establishSession(key []byte) *Session {
	v.dropSession()
	v.session = newSession(key)
	v.lastActivity = v.now()
	return v.session
}

func (v *Vault) notifyUnlockFailed(fingerprint string) {
	v.mu.Lock()
	observers := make([]UnlockObserver, len(v.observers))
	copy(observers, v.observers)
	v.mu.Unlock()

	for _, o := range observers {
		o.OnUnlockFailed(fingerprint)
	}
}

// attemptFingerprint derives an opaque identifier for a failed attempt from
// the candidate verifier. Equal wrong PINs map to equal fingerprints; the PIN
// itself cannot be recovered from it.
func attemptFingerprint(candidate []byte) string {
	if len(candidate) > 8 {
		candidate = candidate[:8]
	}
	return hex.EncodeToString(candidate)
}
