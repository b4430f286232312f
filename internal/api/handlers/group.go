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

type GroupService interface {
	CreateGroup(ctx context.Context, userID string, input service.CreateGroupInput) (*domain.DocumentGroup, error)
	GetGroup(ctx context.Context, userID, groupID string) (*domain.DocumentGroup, error)
	ListGroups(ctx context.Context, userID string) ([]*domain.DocumentGroup, error)
	UpdateGroup(ctx context.Context, userID, groupID string, input service.UpdateGroupInput) (*domain.DocumentGroup, error)
	DeleteGroup(ctx context.Context, userID, groupID string) error
	ListGroupDocuments(ctx context.Context, userID, groupID string) ([]*domain.Document, error)
}

type GroupHandler struct {
	svc GroupService
}

func NewGroupHandler(svc GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

type CreateGroupRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	PersonaPrompt string `json:"persona_prompt"`
}

type UpdateGroupRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	PersonaPrompt *string `json:"persona_prompt"`
}

type GroupResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PersonaPrompt string `json:"persona_prompt"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func groupToResponse(g *domain.DocumentGroup) *GroupResponse {
	return &GroupResponse{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		PersonaPrompt: g.PersonaPrompt,
		CreatedAt:     g.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     g.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	group, err := h.svc.CreateGroup(r.Context(), userID, service.CreateGroupInput{
		Name:          req.Name,
		Description:   req.Description,
		PersonaPrompt: req.PersonaPrompt,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, groupToResponse(group))
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	group, err := h.svc.GetGroup(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, groupToResponse(group))
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	groups, err := h.svc.ListGroups(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*GroupResponse, len(groups))
	for i, g := range groups {
		responses[i] = groupToResponse(g)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := h.svc.UpdateGroup(r.Context(), userID, id, service.UpdateGroupInput{
		Name:          req.Name,
		Description:   req.Description,
		PersonaPrompt: req.PersonaPrompt,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, groupToResponse(group))
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.DeleteGroup(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *GroupHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
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

	docs, err := h.svc.ListGroupDocuments(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(docs))
	for i, d := range docs {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, responses)
}
