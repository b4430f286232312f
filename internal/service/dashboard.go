package service

import (
	"context"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
)

const (
	overviewKeywordLimit  = 10
	overviewQuestionLimit = 10
	overviewDocumentLimit = 5
	overviewFailedLimit   = 10
	overviewWindowDays    = 30
)

type DashboardRepository interface {
	TopKeywords(ctx context.Context, userID string, limit int) ([]domain.KeywordCount, error)
	RecentQuestions(ctx context.Context, userID string, limit int) ([]*domain.QALog, error)
	DailyCounts(ctx context.Context, userID string, since time.Time) ([]domain.DailyCount, error)
	FailedQuestions(ctx context.Context, userID string, limit int) ([]domain.FailedQuestion, error)
}

// RecentQuestion is one history entry on the dashboard.
type RecentQuestion struct {
	Question  string          `json:"question"`
	Status    domain.QAStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// RecentDocument is one document summary on the dashboard.
type RecentDocument struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	Status    domain.DocumentStatus `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
}

// Overview is the aggregated dashboard payload.
type Overview struct {
	Keywords        []domain.KeywordCount   `json:"keywords"`
	RecentQuestions []RecentQuestion        `json:"recent_questions"`
	RecentDocuments []RecentDocument        `json:"recent_documents"`
	DailyCounts     []domain.DailyCount     `json:"daily_counts"`
	FailedQuestions []domain.FailedQuestion `json:"failed_questions"`
}

// DashboardService aggregates interaction history into the owner's overview:
// top intents, recent activity, a 30-day volume series and the questions the
// corpus could not answer.
type DashboardService struct {
	dashRepo DashboardRepository
	docRepo  DocumentRepository
}

func NewDashboardService(dashRepo DashboardRepository, docRepo DocumentRepository) *DashboardService {
	return &DashboardService{
		dashRepo: dashRepo,
		docRepo:  docRepo,
	}
}

func (s *DashboardService) GetOverview(ctx context.Context, userID string) (*Overview, error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}

	keywords, err := s.dashRepo.TopKeywords(ctx, userID, overviewKeywordLimit)
	if err != nil {
		return nil, err
	}

	logs, err := s.dashRepo.RecentQuestions(ctx, userID, overviewQuestionLimit)
	if err != nil {
		return nil, err
	}
	questions := make([]RecentQuestion, 0, len(logs))
	for _, l := range logs {
		questions = append(questions, RecentQuestion{
			Question:  l.Question,
			Status:    l.Status,
			CreatedAt: l.CreatedAt,
		})
	}

	docs, err := s.docRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	recentDocs := make([]RecentDocument, 0, overviewDocumentLimit)
	for _, d := range docs {
		if len(recentDocs) == overviewDocumentLimit {
			break
		}
		recentDocs = append(recentDocs, RecentDocument{
			ID:        d.ID,
			Title:     d.Title,
			Status:    d.Status,
			CreatedAt: d.CreatedAt,
		})
	}

	since := time.Now().UTC().AddDate(0, 0, -overviewWindowDays)
	daily, err := s.dashRepo.DailyCounts(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	failed, err := s.dashRepo.FailedQuestions(ctx, userID, overviewFailedLimit)
	if err != nil {
		return nil, err
	}

	return &Overview{
		Keywords:        keywords,
		RecentQuestions: questions,
		RecentDocuments: recentDocs,
		DailyCounts:     daily,
		FailedQuestions: failed,
	}, nil
}
