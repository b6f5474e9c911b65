package repository

import (
	"context"
	"time"

	"quickvision/internal/domain/model"
)

// AccountRepository is the port for the subscription ledger.
type AccountRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	FindByChatID(ctx context.Context, tx Tx, chatID int64) (*model.Account, error)

	// ExtendEntitlement moves the expiry forward by hours from
	// max(now, current expiry) and flips status to active, in one statement.
	// Returns the new expiry.
	ExtendEntitlement(ctx context.Context, tx Tx, id string, hours int) (time.Time, error)

	// SetStatus is idempotent.
	SetStatus(ctx context.Context, tx Tx, id string, status model.AccountStatus) error

	// MarkExpiredIfPast flips status to expired iff the expiry is in the past
	// and the account is still active (lazy expiry sweep). Reports whether a
	// row changed.
	MarkExpiredIfPast(ctx context.Context, tx Tx, id string) (bool, error)

	// FindLapsed lists active accounts whose expiry is in the past, for the
	// periodic sweep.
	FindLapsed(ctx context.Context, tx Tx, limit int) ([]*model.Account, error)

	// Delete removes the account; child rows cascade.
	Delete(ctx context.Context, tx Tx, id string) error

	List(ctx context.Context, tx Tx, limit, offset int) ([]*model.Account, error)
	CountByStatus(ctx context.Context, tx Tx) (map[string]int, error)
}
