package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the indexing lifecycle of a document
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusProcessed  DocumentStatus = "processed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents an uploaded file. Chunking, embedding and indexing
// happen in an external pipeline; this row only tracks metadata and status.
type Document struct {
	ID               string
	UserID           string
	GroupID          string
	Title            string
	OriginalFileName string
	MimeType         string
	SizeBytes        int64
	BlobPath         string
	Source           string
	Status           DocumentStatus
	ChunkCount       int
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastIndexedAt    *time.Time
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if d.UserID == "" {
		return fmt.Errorf("document UserID is required")
	}
	if d.OriginalFileName == "" {
		return fmt.Errorf("document OriginalFileName is required")
	}
	if d.BlobPath == "" {
		return fmt.Errorf("document BlobPath is required")
	}
	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}
	return nil
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusProcessing,
		DocumentStatusProcessed, DocumentStatusFailed:
		return true
	}
	return false
}
