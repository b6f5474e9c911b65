package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/domain/ports/repository"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// LedgerUseCase owns the entitlement ledger: who may invoke the paid
// capability and until when.
type LedgerUseCase interface {
	// RegisterOrFind resolves the account for a chat id, creating it on first contact.
	RegisterOrFind(ctx context.Context, chatID int64, username string) (*model.Account, error)

	// Extend moves the expiry forward by hours from max(now, current expiry).
	// It always leaves the account active: a paid extension implicitly lifts
	// blocked/expired.
	Extend(ctx context.Context, tx repository.Tx, accountID string, hours int) (time.Time, error)

	// IsEntitled reports whether the account may invoke the pipeline. The
	// first observation of a past expiry flips status to expired (lazy sweep).
	IsEntitled(ctx context.Context, accountID string) (bool, error)

	// SetStatus is idempotent.
	SetStatus(ctx context.Context, accountID string, status model.AccountStatus) error

	Get(ctx context.Context, accountID string) (*model.Account, error)
	GetByChatID(ctx context.Context, chatID int64) (*model.Account, error)

	// SweepExpired flips lapsed accounts to expired and returns the ones it
	// flipped. The lazy flip in IsEntitled stays correct without it; the
	// sweep exists so lapsed users get told proactively.
	SweepExpired(ctx context.Context, limit int) ([]*model.Account, error)
}

type ledgerUC struct {
	accounts repository.AccountRepository
	log      *zerolog.Logger
}

func NewLedgerUseCase(accounts repository.AccountRepository, logger *zerolog.Logger) *ledgerUC {
	l := logger.With().Str("component", "LedgerUC").Logger()
	return &ledgerUC{accounts: accounts, log: &l}
}

func (u *ledgerUC) RegisterOrFind(ctx context.Context, chatID int64, username string) (*model.Account, error) {
	acc, err := u.accounts.FindByChatID(ctx, nil, chatID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	acc, err = model.NewAccount("", chatID, username)
	if err != nil {
		return nil, err
	}
	if err := u.accounts.Save(ctx, nil, acc); err != nil {
		return nil, err
	}
	u.log.Info().Int64("chat_id", chatID).Str("account_id", acc.ID).Msg("account registered")
	return acc, nil
}

func (u *ledgerUC) Extend(ctx context.Context, tx repository.Tx, accountID string, hours int) (time.Time, error) {
	if hours <= 0 {
		return time.Time{}, domain.ErrInvalidArgument
	}
	newExpiry, err := u.accounts.ExtendEntitlement(ctx, tx, accountID, hours)
	if err != nil {
		return time.Time{}, err
	}
	u.log.Info().Str("account_id", accountID).Int("hours", hours).Time("expires_at", newExpiry).Msg("entitlement extended")
	return newExpiry, nil
}

func (u *ledgerUC) IsEntitled(ctx context.Context, accountID string) (bool, error) {
	acc, err := u.accounts.FindByID(ctx, nil, accountID)
	if err != nil {
		return false, err
	}
	now := time.Now()
	if acc.ExpiredAt(now) {
		if _, err := u.accounts.MarkExpiredIfPast(ctx, nil, accountID); err != nil {
			// The sweep is advisory; entitlement is decided from the row we read.
			u.log.Warn().Err(err).Str("account_id", accountID).Msg("lazy expiry flip failed")
		}
		return false, nil
	}
	return acc.Entitled(now), nil
}

func (u *ledgerUC) SetStatus(ctx context.Context, accountID string, status model.AccountStatus) error {
	switch status {
	case model.AccountStatusActive, model.AccountStatusBlocked, model.AccountStatusExpired:
	default:
		return domain.ErrInvalidArgument
	}
	return u.accounts.SetStatus(ctx, nil, accountID, status)
}

func (u *ledgerUC) Get(ctx context.Context, accountID string) (*model.Account, error) {
	return u.accounts.FindByID(ctx, nil, accountID)
}

func (u *ledgerUC) GetByChatID(ctx context.Context, chatID int64) (*model.Account, error) {
	return u.accounts.FindByChatID(ctx, nil, chatID)
}

func (u *ledgerUC) SweepExpired(ctx context.Context, limit int) ([]*model.Account, error) {
	if limit <= 0 {
		limit = 100
	}
	lapsed, err := u.accounts.FindLapsed(ctx, nil, limit)
	if err != nil {
		return nil, err
	}
	var flipped []*model.Account
	for _, acc := range lapsed {
		won, err := u.accounts.MarkExpiredIfPast(ctx, nil, acc.ID)
		if err != nil {
			u.log.Warn().Err(err).Str("account_id", acc.ID).Msg("expiry flip failed")
			continue
		}
		// A concurrent extension may have revived the account between the
		// read and the flip; only report rows we actually moved.
		if won {
			flipped = append(flipped, acc)
		}
	}
	return flipped, nil
}
