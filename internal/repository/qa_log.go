package repository

import (
	"context"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/dobbyjj/codeme/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const qaLogColumns = `id, user_id, document_id, link_id, question, answer, model,
	prompt_tokens, completion_tokens, latency_ms, status, normalized_question, created_at`

// QALogRepository persists interaction logs and serves the dashboard rollups
// derived from them.
type QALogRepository struct {
	db dbtx
}

func NewQALogRepository(pool *pgxpool.Pool) *QALogRepository {
	return &QALogRepository{db: pool}
}

func NewQALogRepositoryWithTx(tx pgx.Tx) *QALogRepository {
	return &QALogRepository{db: tx}
}

func (r *QALogRepository) Create(ctx context.Context, l *domain.QALog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO qa_logs (id, user_id, document_id, link_id, question, answer, model,
		 prompt_tokens, completion_tokens, latency_ms, status, normalized_question, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		l.ID, l.UserID, nullableString(l.DocumentID), nullableString(l.LinkID), l.Question, l.Answer, l.Model,
		l.PromptTokens, l.CompletionTokens, l.LatencyMs, l.Status, l.NormalizedQuestion, l.CreatedAt,
	)
	return err
}

// ListByUserID pages through the user's history newest first, keyed on
// (created_at, id) so entries sharing a timestamp never repeat or vanish
// across pages.
func (r *QALogRepository) ListByUserID(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) ([]*domain.QALog, error) {
	query := `SELECT ` + qaLogColumns + ` FROM qa_logs WHERE user_id = $1`
	args := []interface{}{userID}

	if cursor != nil {
		query += ` AND (created_at, id) < ($2, $3) ORDER BY created_at DESC, id DESC LIMIT $4`
		args = append(args, cursor.Timestamp, cursor.LastID, limit)
	} else {
		query += ` ORDER BY created_at DESC, id DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.QALog
	for rows.Next() {
		l, err := scanQALog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *QALogRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM qa_logs WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// TopKeywords groups the history by normalized question across all statuses.
func (r *QALogRepository) TopKeywords(ctx context.Context, userID string, limit int) ([]domain.KeywordCount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT normalized_question, COUNT(*) AS cnt
		 FROM qa_logs
		 WHERE user_id = $1 AND normalized_question <> ''
		 GROUP BY normalized_question
		 ORDER BY cnt DESC, normalized_question
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keywords []domain.KeywordCount
	for rows.Next() {
		var k domain.KeywordCount
		if err := rows.Scan(&k.Keyword, &k.Count); err != nil {
			return nil, err
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

func (r *QALogRepository) RecentQuestions(ctx context.Context, userID string, limit int) ([]*domain.QALog, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+qaLogColumns+` FROM qa_logs WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.QALog
	for rows.Next() {
		l, err := scanQALog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *QALogRepository) DailyCounts(ctx context.Context, userID string, since time.Time) ([]domain.DailyCount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		 FROM qa_logs
		 WHERE user_id = $1 AND created_at >= $2
		 GROUP BY day
		 ORDER BY day`,
		userID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []domain.DailyCount
	for rows.Next() {
		var c domain.DailyCount
		if err := rows.Scan(&c.Date, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *QALogRepository) FailedQuestions(ctx context.Context, userID string, limit int) ([]domain.FailedQuestion, error) {
	rows, err := r.db.Query(ctx,
		`SELECT normalized_question, COUNT(*) AS cnt, MAX(created_at) AS last_asked
		 FROM qa_logs
		 WHERE user_id = $1 AND status = $2 AND normalized_question <> ''
		 GROUP BY normalized_question
		 ORDER BY cnt DESC, last_asked DESC
		 LIMIT $3`,
		userID, domain.QAStatusNoAnswer, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failed []domain.FailedQuestion
	for rows.Next() {
		var f domain.FailedQuestion
		if err := rows.Scan(&f.NormalizedQuestion, &f.Count, &f.LastAskedAt); err != nil {
			return nil, err
		}
		failed = append(failed, f)
	}
	return failed, rows.Err()
}

func scanQALog(row pgx.Row) (*domain.QALog, error) {
	var l domain.QALog
	var documentID, linkID *string
	err := row.Scan(&l.ID, &l.UserID, &documentID, &linkID, &l.Question, &l.Answer, &l.Model,
		&l.PromptTokens, &l.CompletionTokens, &l.LatencyMs, &l.Status, &l.NormalizedQuestion, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if documentID != nil {
		l.DocumentID = *documentID
	}
	if linkID != nil {
		l.LinkID = *linkID
	}
	return &l, nil
}
