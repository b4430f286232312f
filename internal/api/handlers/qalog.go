package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dobbyjj/codeme/internal/api"
	"github.com/dobbyjj/codeme/internal/api/middleware"
	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/dobbyjj/codeme/internal/pagination"
)

type QALogService interface {
	ListLogs(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.QALog], error)
	PurgeLogs(ctx context.Context, userID string) (int64, error)
}

type QALogHandler struct {
	svc QALogService
}

func NewQALogHandler(svc QALogService) *QALogHandler {
	return &QALogHandler{svc: svc}
}

type QALogResponse struct {
	ID                 string `json:"id"`
	DocumentID         string `json:"document_id,omitempty"`
	LinkID             string `json:"link_id,omitempty"`
	Question           string `json:"question"`
	Answer             string `json:"answer"`
	Model              string `json:"model"`
	Status             string `json:"status"`
	NormalizedQuestion string `json:"normalized_question"`
	LatencyMs          *int   `json:"latency_ms,omitempty"`
	CreatedAt          string `json:"created_at"`
}

type QALogListResponse struct {
	Items   []*QALogResponse `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

func qaLogToResponse(l *domain.QALog) *QALogResponse {
	return &QALogResponse{
		ID:                 l.ID,
		DocumentID:         l.DocumentID,
		LinkID:             l.LinkID,
		Question:           l.Question,
		Answer:             l.Answer,
		Model:              l.Model,
		Status:             string(l.Status),
		NormalizedQuestion: l.NormalizedQuestion,
		LatencyMs:          l.LatencyMs,
		CreatedAt:          l.CreatedAt.Format(time.RFC3339),
	}
}

func (h *QALogHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.svc.ListLogs(r.Context(), userID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*QALogResponse, len(page.Items))
	for i, l := range page.Items {
		responses[i] = qaLogToResponse(l)
	}

	api.Success(w, http.StatusOK, QALogListResponse{
		Items:   responses,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

func (h *QALogHandler) Purge(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	deleted, err := h.svc.PurgeLogs(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
