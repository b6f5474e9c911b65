package repository

import (
	"context"
	"time"

	"quickvision/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)

	// UpdateStatusIfPending atomically moves pending -> status and reports
	// whether this caller won the transition. This is the settlement
	// idempotency guard: a duplicate gateway notification affects zero rows.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.PaymentStatus, transactionRef *string, completedAt *time.Time) (bool, error)

	// UpdateStatusIfCompleted moves completed -> refunded (manual operator path).
	UpdateStatusIfCompleted(ctx context.Context, tx Tx, id string, transactionRef *string) (bool, error)

	SumCompletedSince(ctx context.Context, tx Tx, since time.Time) (int64, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string, limit int) ([]*model.Payment, error)
}
