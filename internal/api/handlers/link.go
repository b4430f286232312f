package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dobbyjj/codeme/internal/api"
	"github.com/dobbyjj/codeme/internal/api/middleware"
	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/dobbyjj/codeme/internal/service"
	"github.com/go-chi/chi/v5"
)

type LinkService interface {
	CreateLink(ctx context.Context, userID string, input service.CreateLinkInput) (*domain.Link, error)
	GetLink(ctx context.Context, userID, linkID string) (*domain.Link, error)
	ListLinks(ctx context.Context, userID string) ([]*domain.Link, error)
	DeactivateLink(ctx context.Context, userID, linkID string) error
}

type LinkHandler struct {
	svc LinkService
}

func NewLinkHandler(svc LinkService) *LinkHandler {
	return &LinkHandler{svc: svc}
}

type CreateLinkRequest struct {
	DocumentID string `json:"document_id"`
	GroupID    string `json:"group_id"`
	Title      string `json:"title"`
	ExpiresAt  string `json:"expires_at"`
	Visibility string `json:"visibility"`
}

type LinkResponse struct {
	ID             string `json:"id"`
	DocumentID     string `json:"document_id,omitempty"`
	GroupID        string `json:"group_id,omitempty"`
	Title          string `json:"title"`
	IsActive       bool   `json:"is_active"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	Visibility     string `json:"visibility"`
	CreatedAt      string `json:"created_at"`
	LastAccessedAt string `json:"last_accessed_at,omitempty"`
	AccessCount    int    `json:"access_count"`
}

func linkToResponse(l *domain.Link) *LinkResponse {
	resp := &LinkResponse{
		ID:          l.ID,
		DocumentID:  l.DocumentID,
		GroupID:     l.GroupID,
		Title:       l.Title,
		IsActive:    l.IsActive,
		Visibility:  l.Visibility,
		CreatedAt:   l.CreatedAt.Format(time.RFC3339),
		AccessCount: l.AccessCount,
	}
	if l.ExpiresAt != nil {
		resp.ExpiresAt = l.ExpiresAt.Format(time.RFC3339)
	}
	if l.LastAccessedAt != nil {
		resp.LastAccessedAt = l.LastAccessedAt.Format(time.RFC3339)
	}
	return resp
}

func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.CreateLinkInput{
		DocumentID: req.DocumentID,
		GroupID:    req.GroupID,
		Title:      req.Title,
		Visibility: req.Visibility,
	}

	if req.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "expires_at must be RFC3339")
			return
		}
		input.ExpiresAt = &expiresAt
	}

	link, err := h.svc.CreateLink(r.Context(), userID, input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, linkToResponse(link))
}

func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	link, err := h.svc.GetLink(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, linkToResponse(link))
}

func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	links, err := h.svc.ListLinks(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*LinkResponse, len(links))
	for i, l := range links {
		responses[i] = linkToResponse(l)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *LinkHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeactivateLink(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
