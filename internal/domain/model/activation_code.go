package model

import (
	"time"
)

// ActivationCode binds one desktop installation to an account. A code flips
// is_used exactly once; a repeat redemption from the recorded origin is
// treated as a reinstall and does not mutate the row again.
type ActivationCode struct {
	ID         string
	Code       string
	AccountID  string
	IsUsed     bool
	UsedAt     *time.Time // nil until first redemption
	Origin     *string    // redeeming client fingerprint (IP in practice)
	DeviceInfo *string
	CreatedAt  time.Time
}

// BoundTo reports whether the code was first redeemed from the given origin.
func (c *ActivationCode) BoundTo(origin string) bool {
	return c.IsUsed && c.Origin != nil && *c.Origin == origin
}
