// Package common defines shared constants and sentinel errors used across
// the vault subsystem. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrorNotFound = errors.New("not found")

	// Crypto / verification errors. Never swallowed into an empty result.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// Vault state errors.
	ErrVaultLocked          = errors.New("vault is locked")
	ErrLockedOut            = errors.New("vault is locked out")
	ErrNotInitialized       = errors.New("vault is not initialized")
	ErrAlreadyInitialized   = errors.New("vault is already initialized")
	ErrOperationInProgress  = errors.New("operation already in progress")

	// Setup validation errors.
	ErrPINTooShort = errors.New("pin is too short")
	ErrPINMismatch = errors.New("pin confirmation does not match")

	// Contact exchange errors.
	ErrInviteExpired  = errors.New("invite expired")
	ErrInviteNotFound = errors.New("invite not found")

	// Relay errors.
	ErrTimeout = errors.New("operation timed out")

	// Intrusion capture errors (non-fatal).
	ErrCaptureUnavailable = errors.New("capture unavailable")
)
