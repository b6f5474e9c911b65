package model

import (
	"time"

	"quickvision/internal/domain"

	"github.com/google/uuid"
)

type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusBlocked AccountStatus = "blocked"
	AccountStatusExpired AccountStatus = "expired"
)

// Account is the subscription ledger row for one Telegram user.
// ExpiresAt is nil until the first paid extension; a nil expiry means
// "never activated" and is not entitled.
type Account struct {
	ID             string
	TelegramChatID int64
	Username       string
	Status         AccountStatus
	ExpiresAt      *time.Time
	HoursPurchased int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewAccount(id string, chatID int64, username string) (*Account, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if chatID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Account{
		ID:             id,
		TelegramChatID: chatID,
		Username:       username,
		Status:         AccountStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Entitled reports whether the account may invoke the extraction pipeline.
// A blocked status always wins; a nil expiry means never activated.
func (a *Account) Entitled(now time.Time) bool {
	if a == nil || a.Status != AccountStatusActive {
		return false
	}
	if a.ExpiresAt == nil {
		return false
	}
	return a.ExpiresAt.After(now)
}

// ExpiredAt reports whether the entitlement window has lapsed; used by the
// lazy sweep to flip status the first time an expired row is observed.
func (a *Account) ExpiredAt(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now) && a.Status == AccountStatusActive
}
