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

var _ repository.AccountRepository = (*PostgresAccountRepo)(nil)

type PostgresAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{pool: pool}
}

func (r *PostgresAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (
  id, telegram_chat_id, username, status, expires_at, hours_purchased, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (id) DO UPDATE SET
  username=$3, status=$4, expires_at=$5, hours_purchased=$6, updated_at=$8;
`
	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.TelegramChatID, a.Username, a.Status, a.ExpiresAt, a.HoursPurchased, a.CreatedAt, a.UpdatedAt)
	return err
}

const accountColumns = `id, telegram_chat_id, username, status, expires_at, hours_purchased, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.TelegramChatID, &a.Username, &a.Status, &a.ExpiresAt, &a.HoursPurchased, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PostgresAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1;`, id)
	return scanAccount(row)
}

func (r *PostgresAccountRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.Account, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT `+accountColumns+` FROM accounts WHERE telegram_chat_id=$1;`, chatID)
	return scanAccount(row)
}

// ExtendEntitlement advances the window in one statement so the read and the
// write cannot interleave with a concurrent settlement.
func (r *PostgresAccountRepo) ExtendEntitlement(ctx context.Context, tx repository.Tx, id string, hours int) (time.Time, error) {
	const q = `
UPDATE accounts
   SET expires_at = GREATEST(NOW(), COALESCE(expires_at, NOW())) + make_interval(hours => $2),
       status = 'active',
       hours_purchased = hours_purchased + $2,
       updated_at = NOW()
 WHERE id = $1
RETURNING expires_at;
`
	row := pickRow(ctx, r.pool, tx, q, id, hours)
	var exp time.Time
	if err := row.Scan(&exp); err != nil {
		if err == pgx.ErrNoRows {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("extend entitlement: %w", err)
	}
	return exp, nil
}

func (r *PostgresAccountRepo) SetStatus(ctx context.Context, tx repository.Tx, id string, status model.AccountStatus) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE accounts SET status=$2, updated_at=NOW() WHERE id=$1;`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) MarkExpiredIfPast(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE accounts SET status='expired', updated_at=NOW()
 WHERE id=$1 AND status='active' AND expires_at IS NOT NULL AND expires_at <= NOW();
`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresAccountRepo) FindLapsed(ctx context.Context, tx repository.Tx, limit int) ([]*model.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts
 WHERE status='active' AND expires_at IS NOT NULL AND expires_at <= NOW()
 ORDER BY expires_at LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.TelegramChatID, &a.Username, &a.Status, &a.ExpiresAt, &a.HoursPurchased, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *PostgresAccountRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM accounts WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Account, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2;`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.TelegramChatID, &a.Username, &a.Status, &a.ExpiresAt, &a.HoursPurchased, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *PostgresAccountRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM accounts GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
