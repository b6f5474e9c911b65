package repository

import (
	"context"

	"quickvision/internal/domain/model"
)

// ActivationCodeRepository is the port for the activation registry.
type ActivationCodeRepository interface {
	Save(ctx context.Context, tx Tx, code *model.ActivationCode) error
	FindByCode(ctx context.Context, tx Tx, code string) (*model.ActivationCode, error)
	FindUnusedByAccount(ctx context.Context, tx Tx, accountID string) (*model.ActivationCode, error)

	// MarkUsed is the single state-changing redemption path. It must be a
	// compare-and-set keyed on is_used = FALSE so two concurrent redeemers
	// cannot both win; reports whether this caller won the transition.
	MarkUsed(ctx context.Context, tx Tx, code, origin string, deviceInfo *string) (bool, error)

	// DeleteUnusedByAccount invalidates outstanding unused codes (admin reset).
	DeleteUnusedByAccount(ctx context.Context, tx Tx, accountID string) (int, error)

	Exists(ctx context.Context, tx Tx, code string) (bool, error)
}
