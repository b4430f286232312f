package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/dobbyjj/codeme/internal/telemetry"
)

const (
	uploadURLTTL   = 15 * time.Minute
	downloadURLTTL = 15 * time.Minute

	maxUploadBytes = 50 << 20
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.Document, error)
	GetByGroupID(ctx context.Context, groupID string) ([]*domain.Document, error)
	Update(ctx context.Context, doc *domain.Document) error
	Delete(ctx context.Context, id string) error
}

// BlobStore stores raw document payloads.
type BlobStore interface {
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
	Head(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
}

// IndexTrigger notifies the external indexing pipeline that a document is
// ready to be chunked and embedded.
type IndexTrigger interface {
	TriggerIndexing(ctx context.Context, doc *domain.Document) error
}

// InitUploadInput describes a document about to be uploaded.
type InitUploadInput struct {
	FileName  string
	MimeType  string
	SizeBytes int64
	Title     string
	GroupID   string
}

// UploadTicket pairs a created document record with a presigned upload URL.
type UploadTicket struct {
	Document  *domain.Document `json:"document"`
	UploadURL string           `json:"upload_url"`
}

// IndexCallbackInput is the payload the indexing pipeline posts back when a
// document finishes (or fails) indexing.
type IndexCallbackInput struct {
	DocumentID   string
	Success      bool
	ChunkCount   int
	ErrorMessage string
}

// DocumentService manages document records and their blobs. Chunking and
// embedding happen in the external indexing pipeline; this service only
// tracks lifecycle state.
type DocumentService struct {
	docRepo   DocumentRepository
	groupRepo GroupRepository
	blobs     BlobStore
	indexer   IndexTrigger
	uuidGen   UUIDGenerator
}

func NewDocumentService(docRepo DocumentRepository, groupRepo GroupRepository, blobs BlobStore, indexer IndexTrigger, uuidGen UUIDGenerator) *DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		groupRepo: groupRepo,
		blobs:     blobs,
		indexer:   indexer,
		uuidGen:   uuidGen,
	}
}

// InitUpload creates the document record and returns a presigned PUT URL the
// client uploads the raw file to.
func (s *DocumentService) InitUpload(ctx context.Context, userID string, input InitUploadInput) (*UploadTicket, error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "file name is required")
	}
	if input.SizeBytes <= 0 || input.SizeBytes > maxUploadBytes {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("file size must be between 1 and %d bytes", maxUploadBytes))
	}

	if input.GroupID != "" {
		group, err := s.groupRepo.GetByID(ctx, input.GroupID)
		if err != nil {
			return nil, err
		}
		if group.UserID != userID {
			return nil, domain.ErrGroupNotFound
		}
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = fileName
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:               s.uuidGen.NewString(),
		UserID:           userID,
		GroupID:          input.GroupID,
		Title:            title,
		OriginalFileName: fileName,
		MimeType:         input.MimeType,
		SizeBytes:        input.SizeBytes,
		Source:           "upload",
		Status:           domain.DocumentStatusUploaded,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	doc.BlobPath = buildBlobPath(userID, doc.ID, fileName)

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	uploadURL, err := s.blobs.PresignUpload(ctx, doc.BlobPath, input.MimeType, uploadURLTTL)
	if err != nil {
		return nil, err
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	return &UploadTicket{Document: doc, UploadURL: uploadURL}, nil
}

// CompleteUpload marks the document uploaded and hands it to the indexing
// pipeline. If the pipeline cannot be reached the document is marked failed
// so the client sees the state instead of a silent stall.
func (s *DocumentService) CompleteUpload(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	doc, err := s.GetDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	// Don't hand the pipeline a blob that was never uploaded.
	if err := s.blobs.Head(ctx, doc.BlobPath); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			"uploaded file not found in storage", err)
	}

	doc.Status = domain.DocumentStatusProcessing
	doc.ErrorMessage = ""
	doc.UpdatedAt = time.Now().UTC()
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.indexer.TriggerIndexing(ctx, doc); err != nil {
		doc.Status = domain.DocumentStatusFailed
		doc.ErrorMessage = "indexing trigger failed"
		doc.UpdatedAt = time.Now().UTC()
		if uerr := s.docRepo.Update(ctx, doc); uerr != nil {
			log.Printf("failed to mark document %s failed: %v", doc.ID, uerr)
			telemetry.CaptureError(ctx, uerr)
		}
		return nil, err
	}

	return doc, nil
}

// HandleIndexCallback records the indexing outcome posted by the pipeline.
func (s *DocumentService) HandleIndexCallback(ctx context.Context, input IndexCallbackInput) error {
	doc, err := s.docRepo.GetByID(ctx, input.DocumentID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if input.Success {
		doc.Status = domain.DocumentStatusProcessed
		doc.ChunkCount = input.ChunkCount
		doc.ErrorMessage = ""
		doc.LastIndexedAt = &now
	} else {
		doc.Status = domain.DocumentStatusFailed
		doc.ErrorMessage = input.ErrorMessage
	}
	doc.UpdatedAt = now

	return s.docRepo.Update(ctx, doc)
}

func (s *DocumentService) GetDocument(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentService) ListDocuments(ctx context.Context, userID string) ([]*domain.Document, error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	return s.docRepo.GetByUserID(ctx, userID)
}

// DownloadURL returns a presigned GET URL for the raw document.
func (s *DocumentService) DownloadURL(ctx context.Context, userID, documentID string) (string, error) {
	doc, err := s.GetDocument(ctx, userID, documentID)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignDownload(ctx, doc.BlobPath, downloadURLTTL)
}

// AssignGroup moves a document into a group, or out of any group when
// groupID is empty.
func (s *DocumentService) AssignGroup(ctx context.Context, userID, documentID, groupID string) (*domain.Document, error) {
	doc, err := s.GetDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	if groupID != "" {
		group, err := s.groupRepo.GetByID(ctx, groupID)
		if err != nil {
			return nil, err
		}
		if group.UserID != userID {
			return nil, domain.ErrGroupNotFound
		}
	}

	doc.GroupID = groupID
	doc.UpdatedAt = time.Now().UTC()
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// DeleteDocument removes the record and, best-effort, the stored blob.
// Links targeting the document are removed with it.
func (s *DocumentService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	doc, err := s.GetDocument(ctx, userID, documentID)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, doc.BlobPath); err != nil {
		log.Printf("failed to delete blob %s: %v", doc.BlobPath, err)
		telemetry.CaptureError(ctx, err)
	}

	return s.docRepo.Delete(ctx, doc.ID)
}

func buildBlobPath(userID, documentID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s", userID, documentID, fileName)
}
