package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dobbyjj/codeme/internal/api"
	"github.com/dobbyjj/codeme/internal/api/middleware"
	"github.com/dobbyjj/codeme/internal/service"
	"github.com/go-chi/chi/v5"
)

type ChatService interface {
	AskAsUser(ctx context.Context, userID string, input service.AskInput) (*service.AskResult, error)
	AskViaLink(ctx context.Context, linkID, question string) (*service.AskResult, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type AskRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"document_id"`
	GroupID    string `json:"group_id"`
	TopK       int    `json:"top_k"`
}

type LinkAskRequest struct {
	Question string `json:"question"`
}

// Ask answers a question against the authenticated user's own documents.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.svc.AskAsUser(r.Context(), userID, service.AskInput{
		Question:   req.Question,
		DocumentID: req.DocumentID,
		GroupID:    req.GroupID,
		TopK:       req.TopK,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

// AskViaLink answers a question for an anonymous visitor holding a share
// link. The link ID is the only credential.
func (h *ChatHandler) AskViaLink(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "id")
	if linkID == "" {
		api.Error(w, http.StatusBadRequest, "link id is required")
		return
	}

	var req LinkAskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.svc.AskViaLink(r.Context(), linkID, req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
