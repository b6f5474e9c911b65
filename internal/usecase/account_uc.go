package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/domain/ports/repository"
)

// AccountDetails aggregates everything the operator panel shows about one
// account.
type AccountDetails struct {
	Account  *model.Account
	Code     *model.ActivationCode // current unused code, may be nil
	Payments []*model.Payment
	Captures int
	Activity []*model.ActivityRecord
}

// ServiceStats is the operator dashboard summary.
type ServiceStats struct {
	AccountsByStatus map[string]int
	RevenueToday     int64 // minor units
	RevenueMonth     int64
	CapturesTotal    int
}

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase is the operator surface over the ledger. Every mutation here
// is an explicit human action from the admin panel, never part of the
// automated payment or redemption flow.
type AccountUseCase interface {
	Block(ctx context.Context, accountID string) error
	Unblock(ctx context.Context, accountID string) error
	Delete(ctx context.Context, accountID string) error

	// ExtendHours is a manual grant; it reuses the same extension rule as a
	// paid settlement.
	ExtendHours(ctx context.Context, accountID string, hours int) (time.Time, error)

	// ReissueCode invalidates any unused code and mints a fresh one.
	ReissueCode(ctx context.Context, accountID string) (string, error)

	// ResetCodes deletes unused codes without replacement; reports how many
	// were removed.
	ResetCodes(ctx context.Context, accountID string) (int, error)

	Details(ctx context.Context, accountID string) (*AccountDetails, error)
	List(ctx context.Context, limit, offset int) ([]*model.Account, error)
	Stats(ctx context.Context) (*ServiceStats, error)
}

type accountUC struct {
	accounts   repository.AccountRepository
	codes      repository.ActivationCodeRepository
	payments   repository.PaymentRepository
	activity   repository.ActivityRepository
	captures   repository.CaptureRepository
	activation ActivationUseCase
	ledger     LedgerUseCase
	tm         repository.TransactionManager
	log        *zerolog.Logger
}

func NewAccountUseCase(
	accounts repository.AccountRepository,
	codes repository.ActivationCodeRepository,
	payments repository.PaymentRepository,
	activity repository.ActivityRepository,
	captures repository.CaptureRepository,
	activation ActivationUseCase,
	ledger LedgerUseCase,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *accountUC {
	l := logger.With().Str("component", "AccountUC").Logger()
	return &accountUC{
		accounts: accounts, codes: codes, payments: payments,
		activity: activity, captures: captures,
		activation: activation, ledger: ledger, tm: tm, log: &l,
	}
}

func (u *accountUC) Block(ctx context.Context, accountID string) error {
	return u.ledger.SetStatus(ctx, accountID, model.AccountStatusBlocked)
}

func (u *accountUC) Unblock(ctx context.Context, accountID string) error {
	acc, err := u.ledger.Get(ctx, accountID)
	if err != nil {
		return err
	}
	// Unblocking restores whatever the expiry implies, not a blanket "active".
	status := model.AccountStatusActive
	if acc.ExpiredAt(time.Now()) || acc.ExpiresAt == nil {
		status = model.AccountStatusExpired
	}
	return u.ledger.SetStatus(ctx, accountID, status)
}

func (u *accountUC) Delete(ctx context.Context, accountID string) error {
	if err := u.accounts.Delete(ctx, repository.NoTX, accountID); err != nil {
		return err
	}
	u.log.Info().Str("account_id", accountID).Msg("account deleted")
	return nil
}

func (u *accountUC) ExtendHours(ctx context.Context, accountID string, hours int) (time.Time, error) {
	if hours <= 0 {
		return time.Time{}, domain.ErrInvalidArgument
	}
	var expires time.Time
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		expires, err = u.ledger.Extend(ctx, tx, accountID, hours)
		return err
	})
	if err != nil {
		return time.Time{}, err
	}
	u.log.Info().Str("account_id", accountID).Int("hours", hours).Time("expires_at", expires).Msg("manual extension")
	return expires, nil
}

func (u *accountUC) ReissueCode(ctx context.Context, accountID string) (string, error) {
	if _, err := u.ledger.Get(ctx, accountID); err != nil {
		return "", err
	}
	var code string
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.codes.DeleteUnusedByAccount(ctx, tx, accountID); err != nil {
			return err
		}
		var err error
		code, err = u.activation.Issue(ctx, tx, accountID, true)
		return err
	})
	return code, err
}

func (u *accountUC) ResetCodes(ctx context.Context, accountID string) (int, error) {
	return u.codes.DeleteUnusedByAccount(ctx, repository.NoTX, accountID)
}

func (u *accountUC) Details(ctx context.Context, accountID string) (*AccountDetails, error) {
	acc, err := u.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}
	d := &AccountDetails{Account: acc}
	if code, err := u.codes.FindUnusedByAccount(ctx, repository.NoTX, accountID); err == nil {
		d.Code = code
	}
	if pays, err := u.payments.ListByAccount(ctx, repository.NoTX, accountID, 20); err == nil {
		d.Payments = pays
	}
	if n, err := u.captures.CountByAccount(ctx, repository.NoTX, accountID); err == nil {
		d.Captures = n
	}
	if recs, err := u.activity.ListByAccount(ctx, repository.NoTX, accountID, 50); err == nil {
		d.Activity = recs
	}
	return d, nil
}

func (u *accountUC) List(ctx context.Context, limit, offset int) ([]*model.Account, error) {
	return u.accounts.List(ctx, repository.NoTX, limit, offset)
}

func (u *accountUC) Stats(ctx context.Context) (*ServiceStats, error) {
	byStatus, err := u.accounts.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	s := &ServiceStats{AccountsByStatus: byStatus}
	if v, err := u.payments.SumCompletedSince(ctx, repository.NoTX, dayStart); err == nil {
		s.RevenueToday = v
	}
	if v, err := u.payments.SumCompletedSince(ctx, repository.NoTX, monthStart); err == nil {
		s.RevenueMonth = v
	}
	if n, err := u.captures.CountAll(ctx, repository.NoTX); err == nil {
		s.CapturesTotal = n
	}
	return s, nil
}
