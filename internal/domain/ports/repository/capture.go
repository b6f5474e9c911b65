package repository

import (
	"context"

	"quickvision/internal/domain/model"
)

type CaptureRepository interface {
	Save(ctx context.Context, tx Tx, c *model.Capture) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Capture, error)
	CountByAccount(ctx context.Context, tx Tx, accountID string) (int, error)
	CountAll(ctx context.Context, tx Tx) (int, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string, limit int) ([]*model.Capture, error)
}
