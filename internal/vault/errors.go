package vault

import (
	"fmt"
	"time"

	"github.com/privault/privault/internal/common"
)

// BadPINError reports a failed unlock attempt and how many attempts remain
// before the vault locks out. It matches common.ErrAuthenticationFailed.
type BadPINError struct {
	AttemptsRemaining int
}

func (e *BadPINError) Error() string {
	return fmt.Sprintf("wrong pin, %d attempts remaining", e.AttemptsRemaining)
}

func (e *BadPINError) Unwrap() error { return common.ErrAuthenticationFailed }

// LockedOutError reports that unlock attempts are blocked until Until.
// It matches common.ErrLockedOut.
type LockedOutError struct {
	Until time.Time
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("locked out until %s", e.Until.Format(time.RFC3339))
}

func (e *LockedOutError) Unwrap() error { return common.ErrLockedOut }

// Remaining returns the cooldown left at the given instant.
func (e *LockedOutError) Remaining(now time.Time) time.Duration {
	if d := e.Until.Sub(now); d > 0 {
		return d
	}
	return 0
}
