package repository

import (
	"context"
	"time"

	"quickvision/internal/domain/model"
)

// ActivityRepository is the append-only audit log. CountSince is the substrate
// of the sliding rate window: always a recount, never a cached bucket.
type ActivityRepository interface {
	Append(ctx context.Context, tx Tx, rec *model.ActivityRecord) error
	CountSince(ctx context.Context, tx Tx, accountID, action string, since time.Time) (int, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string, limit int) ([]*model.ActivityRecord, error)
}
