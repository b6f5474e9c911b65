package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/domain/ports/repository"
)

var _ repository.ActivationCodeRepository = (*PostgresActivationCodeRepo)(nil)

type PostgresActivationCodeRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresActivationCodeRepo(pool *pgxpool.Pool) *PostgresActivationCodeRepo {
	return &PostgresActivationCodeRepo{pool: pool}
}

const codeColumns = `id, code, account_id, is_used, used_at, origin, device_info, created_at`

func (r *PostgresActivationCodeRepo) Save(ctx context.Context, tx repository.Tx, c *model.ActivationCode) error {
	const q = `
INSERT INTO activation_codes (id, code, account_id, is_used, used_at, origin, device_info, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);
`
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.Code, c.AccountID, c.IsUsed, c.UsedAt, c.Origin, c.DeviceInfo, c.CreatedAt)
	return err
}

func scanCode(row pgx.Row) (*model.ActivationCode, error) {
	var c model.ActivationCode
	if err := row.Scan(&c.ID, &c.Code, &c.AccountID, &c.IsUsed, &c.UsedAt, &c.Origin, &c.DeviceInfo, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PostgresActivationCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT `+codeColumns+` FROM activation_codes WHERE code=$1;`, code)
	return scanCode(row)
}

func (r *PostgresActivationCodeRepo) FindUnusedByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.ActivationCode, error) {
	const q = `SELECT ` + codeColumns + ` FROM activation_codes WHERE account_id=$1 AND is_used=FALSE ORDER BY created_at DESC LIMIT 1;`
	row := pickRow(ctx, r.pool, tx, q, accountID)
	return scanCode(row)
}

// MarkUsed is the redemption compare-and-set. The WHERE clause on is_used
// makes a lost race affect zero rows rather than overwrite the binding.
func (r *PostgresActivationCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, code, origin string, deviceInfo *string) (bool, error) {
	const q = `
UPDATE activation_codes
   SET is_used=TRUE, used_at=NOW(), origin=$2, device_info=$3
 WHERE code=$1 AND is_used=FALSE;
`
	tag, err := execSQL(ctx, r.pool, tx, q, code, origin, deviceInfo)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresActivationCodeRepo) DeleteUnusedByAccount(ctx context.Context, tx repository.Tx, accountID string) (int, error) {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM activation_codes WHERE account_id=$1 AND is_used=FALSE;`, accountID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresActivationCodeRepo) Exists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT EXISTS(SELECT 1 FROM activation_codes WHERE code=$1);`, code)
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
