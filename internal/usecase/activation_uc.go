package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/domain/ports/repository"
)

// AccountView is the subscription view returned to the desktop client after
// a successful redemption or status check.
type AccountView struct {
	AccountID      string
	ChatID         int64
	Username       string
	Status         model.AccountStatus
	ExpiresAt      *time.Time
	HoursPurchased int
	Entitled       bool
	Reinstall      bool // true when an already-bound code was accepted from its origin
}

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// ActivationUseCase drives the redemption protocol and code issuance.
type ActivationUseCase interface {
	// Redeem binds a code to the calling origin. The first redemption wins a
	// compare-and-set on is_used; a repeat from the same origin is treated as
	// a reinstall; a different origin is rejected with ErrCodeAlreadyUsed.
	Redeem(ctx context.Context, code, origin string, deviceInfo *string) (*AccountView, error)

	// Issue returns an activation code for the account. Unless forceNew is
	// set, an existing unused code is returned unchanged to avoid code churn.
	Issue(ctx context.Context, tx repository.Tx, accountID string, forceNew bool) (string, error)

	// Resolve looks a code up without redeeming it (admission gate, status checks).
	Resolve(ctx context.Context, code string) (*model.ActivationCode, error)
}

const maxCodeAttempts = 10

type activationUC struct {
	codes    repository.ActivationCodeRepository
	accounts repository.AccountRepository
	activity repository.ActivityRepository
	log      *zerolog.Logger
}

func NewActivationUseCase(
	codes repository.ActivationCodeRepository,
	accounts repository.AccountRepository,
	activity repository.ActivityRepository,
	logger *zerolog.Logger,
) *activationUC {
	l := logger.With().Str("component", "ActivationUC").Logger()
	return &activationUC{codes: codes, accounts: accounts, activity: activity, log: &l}
}

func (u *activationUC) Redeem(ctx context.Context, code, origin string, deviceInfo *string) (*AccountView, error) {
	if code == "" || origin == "" {
		return nil, domain.ErrValidation
	}

	ac, err := u.codes.FindByCode(ctx, nil, code)
	if err != nil {
		return nil, err
	}

	if !ac.IsUsed {
		won, err := u.codes.MarkUsed(ctx, nil, code, origin, deviceInfo)
		if err != nil {
			return nil, err
		}
		if won {
			u.appendActivity(ctx, ac.AccountID, origin, deviceInfo)
			view, err := u.view(ctx, ac.AccountID)
			if err != nil {
				return nil, err
			}
			u.log.Info().Str("account_id", ac.AccountID).Str("origin", origin).Msg("activation code redeemed")
			return view, nil
		}
		// Lost the race: someone else redeemed between our read and the CAS.
		ac, err = u.codes.FindByCode(ctx, nil, code)
		if err != nil {
			return nil, err
		}
	}

	if ac.BoundTo(origin) {
		view, err := u.view(ctx, ac.AccountID)
		if err != nil {
			return nil, err
		}
		view.Reinstall = true
		return view, nil
	}
	return nil, domain.ErrCodeAlreadyUsed
}

func (u *activationUC) Issue(ctx context.Context, tx repository.Tx, accountID string, forceNew bool) (string, error) {
	if !forceNew {
		existing, err := u.codes.FindUnusedByAccount(ctx, tx, accountID)
		if err == nil {
			return existing.Code, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateActivationCode()
		if err != nil {
			return "", err
		}
		taken, err := u.codes.Exists(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if taken {
			continue
		}
		ac := &model.ActivationCode{
			ID:        uuid.NewString(),
			Code:      code,
			AccountID: accountID,
			CreatedAt: time.Now(),
		}
		if err := u.codes.Save(ctx, tx, ac); err != nil {
			return "", err
		}
		return code, nil
	}
	return "", domain.ErrCodeExhausted
}

func (u *activationUC) Resolve(ctx context.Context, code string) (*model.ActivationCode, error) {
	if code == "" {
		return nil, domain.ErrValidation
	}
	return u.codes.FindByCode(ctx, nil, code)
}

func (u *activationUC) view(ctx context.Context, accountID string) (*AccountView, error) {
	acc, err := u.accounts.FindByID(ctx, nil, accountID)
	if err != nil {
		return nil, err
	}
	return &AccountView{
		AccountID:      acc.ID,
		ChatID:         acc.TelegramChatID,
		Username:       acc.Username,
		Status:         acc.Status,
		ExpiresAt:      acc.ExpiresAt,
		HoursPurchased: acc.HoursPurchased,
		Entitled:       acc.Entitled(time.Now()),
	}, nil
}

func (u *activationUC) appendActivity(ctx context.Context, accountID, origin string, deviceInfo *string) {
	detail := map[string]interface{}{}
	if deviceInfo != nil {
		detail["device_info"] = *deviceInfo
	}
	rec := &model.ActivityRecord{
		ID:        newULID(),
		AccountID: accountID,
		Action:    model.ActionActivation,
		Detail:    detail,
		OriginIP:  origin,
		CreatedAt: time.Now(),
	}
	if err := u.activity.Append(ctx, nil, rec); err != nil {
		u.log.Warn().Err(err).Str("account_id", accountID).Msg("activity append failed")
	}
}
