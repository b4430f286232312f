package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const linkColumns = `id, user_id, document_id, group_id, title, is_active, expires_at,
	visibility, created_at, last_accessed_at, access_count`

type LinkRepository struct {
	db dbtx
}

func NewLinkRepository(pool *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{db: pool}
}

func NewLinkRepositoryWithTx(tx pgx.Tx) *LinkRepository {
	return &LinkRepository{db: tx}
}

func (r *LinkRepository) Create(ctx context.Context, l *domain.Link) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO links (id, user_id, document_id, group_id, title, is_active, expires_at,
		 visibility, created_at, last_accessed_at, access_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		l.ID, l.UserID, nullableString(l.DocumentID), nullableString(l.GroupID), l.Title, l.IsActive,
		l.ExpiresAt, l.Visibility, l.CreatedAt, l.LastAccessedAt, l.AccessCount,
	)
	return err
}

func (r *LinkRepository) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	row := r.db.QueryRow(ctx, `SELECT `+linkColumns+` FROM links WHERE id = $1`, id)
	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

// FindActiveByTarget returns the newest active link for the given target.
// Expiry is not checked here; callers decide what an expired link means.
func (r *LinkRepository) FindActiveByTarget(ctx context.Context, userID, documentID, groupID string) (*domain.Link, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM links
		 WHERE user_id = $1 AND is_active
		   AND document_id IS NOT DISTINCT FROM $2
		   AND group_id IS NOT DISTINCT FROM $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, nullableString(documentID), nullableString(groupID),
	)
	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

func (r *LinkRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.Link, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+linkColumns+` FROM links WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*domain.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *LinkRepository) Deactivate(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE links SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

func (r *LinkRepository) IncrementAccess(ctx context.Context, id string, accessedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE links SET access_count = access_count + 1, last_accessed_at = $1 WHERE id = $2`,
		accessedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

// DeactivateExpired flips every active link whose expiry has passed and
// returns how many were affected.
func (r *LinkRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE links SET is_active = FALSE WHERE is_active AND expires_at IS NOT NULL AND expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func scanLink(row pgx.Row) (*domain.Link, error) {
	var l domain.Link
	var documentID, groupID *string
	err := row.Scan(&l.ID, &l.UserID, &documentID, &groupID, &l.Title, &l.IsActive, &l.ExpiresAt,
		&l.Visibility, &l.CreatedAt, &l.LastAccessedAt, &l.AccessCount)
	if err != nil {
		return nil, err
	}
	if documentID != nil {
		l.DocumentID = *documentID
	}
	if groupID != nil {
		l.GroupID = *groupID
	}
	return &l, nil
}
