package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/domain/ports/repository"
)

var _ repository.CaptureRepository = (*PostgresCaptureRepo)(nil)

type PostgresCaptureRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCaptureRepo(pool *pgxpool.Pool) *PostgresCaptureRepo {
	return &PostgresCaptureRepo{pool: pool}
}

const captureColumns = `id, account_id, code, content_hash, content_size, prompt, raw_response, answer, elapsed_ms, success, error_text, created_at`

func (r *PostgresCaptureRepo) Save(ctx context.Context, tx repository.Tx, c *model.Capture) error {
	const q = `
INSERT INTO captures (` + captureColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.AccountID, c.Code, c.ContentHash, c.ContentSize, c.Prompt,
		c.RawResponse, c.Answer, c.ElapsedMs, c.Success, c.ErrorText, c.CreatedAt)
	return err
}

func (r *PostgresCaptureRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Capture, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT `+captureColumns+` FROM captures WHERE id=$1;`, id)
	var c model.Capture
	if err := row.Scan(&c.ID, &c.AccountID, &c.Code, &c.ContentHash, &c.ContentSize, &c.Prompt, &c.RawResponse, &c.Answer, &c.ElapsedMs, &c.Success, &c.ErrorText, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PostgresCaptureRepo) CountByAccount(ctx context.Context, tx repository.Tx, accountID string) (int, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM captures WHERE account_id=$1;`, accountID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count captures: %w", err)
	}
	return n, nil
}

func (r *PostgresCaptureRepo) CountAll(ctx context.Context, tx repository.Tx) (int, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM captures;`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count captures: %w", err)
	}
	return n, nil
}

func (r *PostgresCaptureRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, limit int) ([]*model.Capture, error) {
	const q = `SELECT ` + captureColumns + ` FROM captures WHERE account_id=$1 ORDER BY created_at DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Capture
	for rows.Next() {
		var c model.Capture
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Code, &c.ContentHash, &c.ContentSize, &c.Prompt, &c.RawResponse, &c.Answer, &c.ElapsedMs, &c.Success, &c.ErrorText, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
