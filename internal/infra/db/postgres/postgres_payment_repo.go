package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*PostgresPaymentRepo)(nil)

type PostgresPaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPaymentRepo(pool *pgxpool.Pool) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{pool: pool}
}

const paymentColumns = `id, account_id, amount, hours, method, status, transaction_ref, created_at, completed_at`

func (r *PostgresPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (id, account_id, amount, hours, method, status, transaction_ref, created_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);
`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.AccountID, p.Amount, p.Hours, p.Method, p.Status, p.TransactionRef, p.CreatedAt, p.CompletedAt)
	return err
}

func (r *PostgresPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1;`, id)
	var p model.Payment
	if err := row.Scan(&p.ID, &p.AccountID, &p.Amount, &p.Hours, &p.Method, &p.Status, &p.TransactionRef, &p.CreatedAt, &p.CompletedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateStatusIfPending is the settlement compare-and-set: only a pending row
// moves, so a duplicate gateway notification affects zero rows.
func (r *PostgresPaymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, transactionRef *string, completedAt *time.Time) (bool, error) {
	const q = `
UPDATE payments
   SET status=$2, transaction_ref=COALESCE($3, transaction_ref), completed_at=$4
 WHERE id=$1 AND status='pending';
`
	tag, err := execSQL(ctx, r.pool, tx, q, id, status, transactionRef, completedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresPaymentRepo) UpdateStatusIfCompleted(ctx context.Context, tx repository.Tx, id string, transactionRef *string) (bool, error) {
	const q = `
UPDATE payments
   SET status='refunded', transaction_ref=COALESCE($2, transaction_ref)
 WHERE id=$1 AND status='completed';
`
	tag, err := execSQL(ctx, r.pool, tx, q, id, transactionRef)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresPaymentRepo) SumCompletedSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status='completed' AND completed_at >= $1;`
	row := pickRow(ctx, r.pool, tx, q, since)
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum completed: %w", err)
	}
	return sum, nil
}

func (r *PostgresPaymentRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, limit int) ([]*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE account_id=$1 ORDER BY created_at DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Amount, &p.Hours, &p.Method, &p.Status, &p.TransactionRef, &p.CreatedAt, &p.CompletedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
