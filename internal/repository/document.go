package repository

import (
	"context"
	"errors"

	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, user_id, group_id, title, original_file_name, mime_type, size_bytes,
	blob_path, source, status, chunk_count, error_message, created_at, updated_at, last_indexed_at`

type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (id, user_id, group_id, title, original_file_name, mime_type, size_bytes,
		 blob_path, source, status, chunk_count, error_message, created_at, updated_at, last_indexed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		d.ID, d.UserID, nullableString(d.GroupID), d.Title, d.OriginalFileName, d.MimeType, d.SizeBytes,
		d.BlobPath, d.Source, d.Status, d.ChunkCount, nullableString(d.ErrorMessage), d.CreatedAt, d.UpdatedAt, d.LastIndexedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (r *DocumentRepository) GetByGroupID(ctx context.Context, groupID string) ([]*domain.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE group_id = $1 ORDER BY created_at DESC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (r *DocumentRepository) Update(ctx context.Context, d *domain.Document) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE documents
		 SET group_id = $1, title = $2, status = $3, chunk_count = $4, error_message = $5,
		     updated_at = $6, last_indexed_at = $7
		 WHERE id = $8`,
		nullableString(d.GroupID), d.Title, d.Status, d.ChunkCount, nullableString(d.ErrorMessage),
		d.UpdatedAt, d.LastIndexedAt, d.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var groupID, errorMessage *string
	err := row.Scan(&d.ID, &d.UserID, &groupID, &d.Title, &d.OriginalFileName, &d.MimeType, &d.SizeBytes,
		&d.BlobPath, &d.Source, &d.Status, &d.ChunkCount, &errorMessage, &d.CreatedAt, &d.UpdatedAt, &d.LastIndexedAt)
	if err != nil {
		return nil, err
	}
	if groupID != nil {
		d.GroupID = *groupID
	}
	if errorMessage != nil {
		d.ErrorMessage = *errorMessage
	}
	return &d, nil
}

func scanDocuments(rows pgx.Rows) ([]*domain.Document, error) {
	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
