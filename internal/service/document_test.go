package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.Document, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) GetByGroupID(ctx context.Context, groupID string) ([]*domain.Document, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	args := m.Called(ctx, key, contentType, expires)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	args := m.Called(ctx, key, expires)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) Head(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockIndexTrigger struct {
	mock.Mock
}

func (m *MockIndexTrigger) TriggerIndexing(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func newDocumentFixture() (*DocumentService, *MockDocumentRepository, *MockGroupRepository, *MockBlobStore, *MockIndexTrigger) {
	docRepo := new(MockDocumentRepository)
	groupRepo := new(MockGroupRepository)
	blobs := new(MockBlobStore)
	indexer := new(MockIndexTrigger)
	svc := NewDocumentService(docRepo, groupRepo, blobs, indexer, NewMockUUIDGenerator("doc-123"))
	return svc, docRepo, groupRepo, blobs, indexer
}

func TestDocumentService_InitUpload(t *testing.T) {
	ctx := context.Background()
	svc, docRepo, _, blobs, _ := newDocumentFixture()

	blobs.On("PresignUpload", ctx, "user-1/doc-123/intro.pdf", "application/pdf", uploadURLTTL).
		Return("https://blobs.example/put", nil)
	docRepo.On("Create", ctx, mock.MatchedBy(func(d *domain.Document) bool {
		return d.ID == "doc-123" && d.Status == domain.DocumentStatusUploaded &&
			d.Title == "intro.pdf" && d.BlobPath == "user-1/doc-123/intro.pdf"
	})).Return(nil)

	ticket, err := svc.InitUpload(ctx, "user-1", InitUploadInput{
		FileName:  "intro.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 1024,
	})

	require.NoError(t, err)
	assert.Equal(t, "https://blobs.example/put", ticket.UploadURL)
	assert.Equal(t, "doc-123", ticket.Document.ID)
	docRepo.AssertExpectations(t)
}

func TestDocumentService_InitUpload_TooLarge(t *testing.T) {
	svc, _, _, _, _ := newDocumentFixture()

	_, err := svc.InitUpload(context.Background(), "user-1", InitUploadInput{
		FileName:  "big.bin",
		SizeBytes: maxUploadBytes + 1,
	})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestDocumentService_InitUpload_ForeignGroup(t *testing.T) {
	ctx := context.Background()
	svc, _, groupRepo, _, _ := newDocumentFixture()

	groupRepo.On("GetByID", ctx, "group-1").Return(&domain.DocumentGroup{
		ID:     "group-1",
		UserID: "someone-else",
		Name:   "g",
	}, nil)

	_, err := svc.InitUpload(ctx, "user-1", InitUploadInput{
		FileName:  "intro.pdf",
		SizeBytes: 10,
		GroupID:   "group-1",
	})

	assert.Equal(t, domain.ErrGroupNotFound, err)
}

func TestDocumentService_CompleteUpload_TriggersIndexing(t *testing.T) {
	ctx := context.Background()
	svc, docRepo, _, blobs, indexer := newDocumentFixture()

	doc := ownedDoc("doc-1", "user-1")
	doc.Status = domain.DocumentStatusUploaded
	docRepo.On("GetByID", ctx, "doc-1").Return(doc, nil)
	blobs.On("Head", ctx, doc.BlobPath).Return(nil)
	docRepo.On("Update", ctx, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Status == domain.DocumentStatusProcessing
	})).Return(nil).Once()
	indexer.On("TriggerIndexing", ctx, mock.Anything).Return(nil)

	updated, err := svc.CompleteUpload(ctx, "user-1", "doc-1")

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusProcessing, updated.Status)
	indexer.AssertExpectations(t)
}

func TestDocumentService_CompleteUpload_MissingBlob(t *testing.T) {
	ctx := context.Background()
	svc, docRepo, _, blobs, indexer := newDocumentFixture()

	doc := ownedDoc("doc-1", "user-1")
	doc.Status = domain.DocumentStatusUploaded
	docRepo.On("GetByID", ctx, "doc-1").Return(doc, nil)
	blobs.On("Head", ctx, doc.BlobPath).Return(errors.New("not found"))

	_, err := svc.CompleteUpload(ctx, "user-1", "doc-1")

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	indexer.AssertNotCalled(t, "TriggerIndexing", mock.Anything, mock.Anything)
}

func TestDocumentService_CompleteUpload_TriggerFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	svc, docRepo, _, blobs, indexer := newDocumentFixture()

	doc := ownedDoc("doc-1", "user-1")
	docRepo.On("GetByID", ctx, "doc-1").Return(doc, nil)
	blobs.On("Head", ctx, doc.BlobPath).Return(nil)
	docRepo.On("Update", ctx, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Status == domain.DocumentStatusProcessing
	})).Return(nil).Once()
	indexer.On("TriggerIndexing", ctx, mock.Anything).Return(errors.New("webhook unreachable"))
	docRepo.On("Update", ctx, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Status == domain.DocumentStatusFailed && d.ErrorMessage != ""
	})).Return(nil).Once()

	_, err := svc.CompleteUpload(ctx, "user-1", "doc-1")

	require.Error(t, err)
	docRepo.AssertExpectations(t)
}

func TestDocumentService_HandleIndexCallback_Success(t *testing.T) {
	ctx := context.Background()
	svc, docRepo, _, _, _ := newDocumentFixture()

	doc := ownedDoc("doc-1", "user-1")
	doc.Status = domain.DocumentStatusProcessing
	docRepo.On("GetByID", ctx, "doc-1").Return(doc, nil)
	docRepo.On("Update", ctx, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Status == domain.DocumentStatusProcessed && d.ChunkCount == 12 && d.LastIndexedAt != nil
	})).Return(nil)

	err := svc.HandleIndexCallback(ctx, IndexCallbackInput{
		DocumentID: "doc-1",
		Success:    true,
		ChunkCount: 12,
	})

	require.NoError(t, err)
	docRepo.AssertExpectations(t)
}

func TestDocumentService_HandleIndexCallback_Failure(t *testing.T) {
	ctx := context.Background()
	svc, docRepo, _, _, _ := newDocumentFixture()

	doc := ownedDoc("doc-1", "user-1")
	docRepo.On("GetByID", ctx, "doc-1").Return(doc, nil)
	docRepo.On("Update", ctx, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Status == domain.DocumentStatusFailed && d.ErrorMessage == "unsupported encoding"
	})).Return(nil)

	err := svc.HandleIndexCallback(ctx, IndexCallbackInput{
		DocumentID:   "doc-1",
		Success:      false,
		ErrorMessage: "unsupported encoding",
	})

	require.NoError(t, err)
}

func TestDocumentService_GetDocument_ForeignDocument(t *testing.T) {
	ctx := context.Background()
	svc, docRepo, _, _, _ := newDocumentFixture()

	docRepo.On("GetByID", ctx, "doc-1").Return(ownedDoc("doc-1", "someone-else"), nil)

	_, err := svc.GetDocument(ctx, "user-1", "doc-1")

	assert.Equal(t, domain.ErrDocumentNotFound, err)
}

func TestDocumentService_DeleteDocument_BlobFailureStillDeletesRecord(t *testing.T) {
	ctx := context.Background()
	svc, docRepo, _, blobs, _ := newDocumentFixture()

	doc := ownedDoc("doc-1", "user-1")
	docRepo.On("GetByID", ctx, "doc-1").Return(doc, nil)
	blobs.On("Delete", ctx, doc.BlobPath).Return(errors.New("blob store down"))
	docRepo.On("Delete", ctx, "doc-1").Return(nil)

	err := svc.DeleteDocument(ctx, "user-1", "doc-1")

	require.NoError(t, err)
	docRepo.AssertExpectations(t)
}

func TestDocumentService_AssignGroup_Clear(t *testing.T) {
	ctx := context.Background()
	svc, docRepo, _, _, _ := newDocumentFixture()

	doc := ownedDoc("doc-1", "user-1")
	doc.GroupID = "group-1"
	docRepo.On("GetByID", ctx, "doc-1").Return(doc, nil)
	docRepo.On("Update", ctx, mock.MatchedBy(func(d *domain.Document) bool {
		return d.GroupID == ""
	})).Return(nil)

	updated, err := svc.AssignGroup(ctx, "user-1", "doc-1", "")

	require.NoError(t, err)
	assert.Empty(t, updated.GroupID)
}
