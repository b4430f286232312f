package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuthTokenRepository struct {
	pool *pgxpool.Pool
}

func NewAuthTokenRepository(pool *pgxpool.Pool) *AuthTokenRepository {
	return &AuthTokenRepository{pool: pool}
}

func (r *AuthTokenRepository) Create(ctx context.Context, t *domain.AuthToken) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_tokens (id, user_id, token_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt,
	)
	return err
}

func (r *AuthTokenRepository) GetByHash(ctx context.Context, hash string) (*domain.AuthToken, error) {
	var t domain.AuthToken
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at
		 FROM auth_tokens WHERE token_hash = $1`,
		hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	return &t, nil
}

func (r *AuthTokenRepository) DeleteByHash(ctx context.Context, hash string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE token_hash = $1`, hash)
	return err
}

func (r *AuthTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
