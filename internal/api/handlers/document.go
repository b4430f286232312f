package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dobbyjj/codeme/internal/api"
	"github.com/dobbyjj/codeme/internal/api/middleware"
	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/dobbyjj/codeme/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	InitUpload(ctx context.Context, userID string, input service.InitUploadInput) (*service.UploadTicket, error)
	CompleteUpload(ctx context.Context, userID, documentID string) (*domain.Document, error)
	HandleIndexCallback(ctx context.Context, input service.IndexCallbackInput) error
	GetDocument(ctx context.Context, userID, documentID string) (*domain.Document, error)
	ListDocuments(ctx context.Context, userID string) ([]*domain.Document, error)
	DownloadURL(ctx context.Context, userID, documentID string) (string, error)
	AssignGroup(ctx context.Context, userID, documentID, groupID string) (*domain.Document, error)
	DeleteDocument(ctx context.Context, userID, documentID string) error
}

type DocumentHandler struct {
	svc DocumentService
	// callbackToken guards the indexing pipeline's completion webhook.
	callbackToken string
}

func NewDocumentHandler(svc DocumentService, callbackToken string) *DocumentHandler {
	return &DocumentHandler{svc: svc, callbackToken: callbackToken}
}

type InitUploadRequest struct {
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Title     string `json:"title"`
	GroupID   string `json:"group_id"`
}

type InitUploadResponse struct {
	Document  *DocumentResponse `json:"document"`
	UploadURL string            `json:"upload_url"`
}

type AssignGroupRequest struct {
	GroupID string `json:"group_id"`
}

type IndexCallbackRequest struct {
	DocumentID   string `json:"document_id"`
	Success      bool   `json:"success"`
	ChunkCount   int    `json:"chunk_count"`
	ErrorMessage string `json:"error_message"`
}

type DocumentResponse struct {
	ID               string `json:"id"`
	GroupID          string `json:"group_id,omitempty"`
	Title            string `json:"title"`
	OriginalFileName string `json:"original_file_name"`
	MimeType         string `json:"mime_type"`
	SizeBytes        int64  `json:"size_bytes"`
	Source           string `json:"source"`
	Status           string `json:"status"`
	ChunkCount       int    `json:"chunk_count"`
	ErrorMessage     string `json:"error_message,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
	LastIndexedAt    string `json:"last_indexed_at,omitempty"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:               d.ID,
		GroupID:          d.GroupID,
		Title:            d.Title,
		OriginalFileName: d.OriginalFileName,
		MimeType:         d.MimeType,
		SizeBytes:        d.SizeBytes,
		Source:           d.Source,
		Status:           string(d.Status),
		ChunkCount:       d.ChunkCount,
		ErrorMessage:     d.ErrorMessage,
		CreatedAt:        d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        d.UpdatedAt.Format(time.RFC3339),
	}
	if d.LastIndexedAt != nil {
		resp.LastIndexedAt = d.LastIndexedAt.Format(time.RFC3339)
	}
	return resp
}

func (h *DocumentHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req InitUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FileName == "" {
		api.Error(w, http.StatusBadRequest, "file_name is required")
		return
	}

	ticket, err := h.svc.InitUpload(r.Context(), userID, service.InitUploadInput{
		FileName:  req.FileName,
		MimeType:  req.MimeType,
		SizeBytes: req.SizeBytes,
		Title:     req.Title,
		GroupID:   req.GroupID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, InitUploadResponse{
		Document:  documentToResponse(ticket.Document),
		UploadURL: ticket.UploadURL,
	})
}

func (h *DocumentHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
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

	doc, err := h.svc.CompleteUpload(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

// IndexCallback is called by the indexing pipeline, not by users. It is
// guarded by a shared token instead of the bearer auth middleware.
func (h *DocumentHandler) IndexCallback(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Callback-Token")
	if h.callbackToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.callbackToken)) != 1 {
		api.Error(w, http.StatusUnauthorized, "invalid callback token")
		return
	}

	var req IndexCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DocumentID == "" {
		api.Error(w, http.StatusBadRequest, "document_id is required")
		return
	}

	err := h.svc.HandleIndexCallback(r.Context(), service.IndexCallbackInput{
		DocumentID:   req.DocumentID,
		Success:      req.Success,
		ChunkCount:   req.ChunkCount,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	doc, err := h.svc.GetDocument(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	docs, err := h.svc.ListDocuments(r.Context(), userID)
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

func (h *DocumentHandler) GetDownloadURL(w http.ResponseWriter, r *http.Request) {
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

	url, err := h.svc.DownloadURL(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"download_url": url})
}

func (h *DocumentHandler) AssignGroup(w http.ResponseWriter, r *http.Request) {
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

	var req AssignGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.AssignGroup(r.Context(), userID, id, req.GroupID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.DeleteDocument(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
