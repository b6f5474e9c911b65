package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/domain/ports/repository"
)

var _ repository.ActivityRepository = (*PostgresActivityRepo)(nil)

type PostgresActivityRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresActivityRepo(pool *pgxpool.Pool) *PostgresActivityRepo {
	return &PostgresActivityRepo{pool: pool}
}

func (r *PostgresActivityRepo) Append(ctx context.Context, tx repository.Tx, rec *model.ActivityRecord) error {
	detail, err := json.Marshal(rec.Detail)
	if err != nil {
		return fmt.Errorf("marshal detail: %w", err)
	}
	const q = `
INSERT INTO activity_log (id, account_id, action, detail, origin_ip, created_at)
VALUES ($1,$2,$3,$4,$5,$6);
`
	_, err = execSQL(ctx, r.pool, tx, q, rec.ID, rec.AccountID, rec.Action, detail, rec.OriginIP, rec.CreatedAt)
	return err
}

// CountSince is the rate-window recount. An index on
// (account_id, action, created_at) keeps this a range scan.
func (r *PostgresActivityRepo) CountSince(ctx context.Context, tx repository.Tx, accountID, action string, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM activity_log WHERE account_id=$1 AND action=$2 AND created_at >= $3;`
	row := pickRow(ctx, r.pool, tx, q, accountID, action, since)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count activity: %w", err)
	}
	return n, nil
}

func (r *PostgresActivityRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, limit int) ([]*model.ActivityRecord, error) {
	const q = `
SELECT id, account_id, action, detail, origin_ip, created_at
  FROM activity_log WHERE account_id=$1 ORDER BY created_at DESC LIMIT $2;
`
	rows, err := queryRows(ctx, r.pool, tx, q, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ActivityRecord
	for rows.Next() {
		var rec model.ActivityRecord
		var detail []byte
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Action, &detail, &rec.OriginIP, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &rec.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal detail: %w", err)
			}
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
