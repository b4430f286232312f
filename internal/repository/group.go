package repository

import (
	"context"
	"errors"

	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

func (r *GroupRepository) Create(ctx context.Context, g *domain.DocumentGroup) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO document_groups (id, user_id, name, description, persona_prompt, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.UserID, g.Name, g.Description, g.PersonaPrompt, g.CreatedAt, g.UpdatedAt,
	)
	return err
}

func (r *GroupRepository) GetByID(ctx context.Context, id string) (*domain.DocumentGroup, error) {
	var g domain.DocumentGroup
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, name, description, persona_prompt, created_at, updated_at
		 FROM document_groups WHERE id = $1`,
		id,
	).Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.PersonaPrompt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.DocumentGroup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, name, description, persona_prompt, created_at, updated_at
		 FROM document_groups WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*domain.DocumentGroup
	for rows.Next() {
		var g domain.DocumentGroup
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.PersonaPrompt, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

func (r *GroupRepository) Update(ctx context.Context, g *domain.DocumentGroup) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE document_groups
		 SET name = $1, description = $2, persona_prompt = $3, updated_at = $4
		 WHERE id = $5`,
		g.Name, g.Description, g.PersonaPrompt, g.UpdatedAt, g.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

// Delete removes the group. Documents fall back to ungrouped and links
// targeting the group are removed via foreign key actions.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM document_groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}
