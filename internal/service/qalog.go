package service

import (
	"context"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/dobbyjj/codeme/internal/pagination"
)

const (
	defaultLogPageSize = 20
	maxLogPageSize     = 100
)

type QALogRepository interface {
	Create(ctx context.Context, qaLog *domain.QALog) error
	ListByUserID(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) ([]*domain.QALog, error)
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

// QALogService exposes the interaction history to its owner.
type QALogService struct {
	logRepo QALogRepository
}

func NewQALogService(logRepo QALogRepository) *QALogService {
	return &QALogService{logRepo: logRepo}
}

// ListLogs returns one page of the user's interaction history, newest first.
func (s *QALogService) ListLogs(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.QALog], error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	if limit <= 0 {
		limit = defaultLogPageSize
	}
	if limit > maxLogPageSize {
		limit = maxLogPageSize
	}

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}

	logs, err := s.logRepo.ListByUserID(ctx, userID, decoded, limit)
	if err != nil {
		return nil, err
	}

	next := pagination.CreateNextCursor(logs, limit,
		func(l *domain.QALog) string { return l.ID },
		func(l *domain.QALog) time.Time { return l.CreatedAt })

	return &pagination.PageResult[*domain.QALog]{
		Items:   logs,
		Cursor:  next,
		HasMore: next != "",
	}, nil
}

// PurgeLogs deletes the user's entire interaction history and returns the
// number of rows removed.
func (s *QALogService) PurgeLogs(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	return s.logRepo.DeleteByUserID(ctx, userID)
}
