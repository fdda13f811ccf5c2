package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/storefront-service/internal/domain"
)

// SessionRepository owns durability of issued refresh tokens. The signed
// token value is the primary key; expired rows stay in place and are
// treated as invalid on lookup (DeleteExpired exists for the optional
// maintenance job, nothing in the request path depends on it).
type SessionRepository interface {
	Create(ctx context.Context, token, accountID string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*domain.RefreshRecord, error)
	Revoke(ctx context.Context, token, accountID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a Postgres-backed implementation.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) Create(ctx context.Context, token, accountID string, expiresAt time.Time) error {
	const query = `
        INSERT INTO refresh_tokens (token, account_id, expires_at)
        VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, token, accountID, expiresAt)
	return err
}

func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshRecord, error) {
	const query = `
        SELECT token, account_id, expires_at, created_at
        FROM refresh_tokens WHERE token=$1`

	var record domain.RefreshRecord
	if err := r.pool.QueryRow(ctx, query, token).Scan(
		&record.Token,
		&record.AccountID,
		&record.ExpiresAt,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}

// Revoke deletes the record only when it belongs to accountID, so one
// account cannot drop another's session via a leaked token value. Returns
// pgx.ErrNoRows when nothing matched.
func (r *sessionRepository) Revoke(ctx context.Context, token, accountID string) error {
	const query = `DELETE FROM refresh_tokens WHERE token=$1 AND account_id=$2`

	cmd, err := r.pool.Exec(ctx, query, token, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at <= NOW()`

	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
