package service

import (
	"context"
	"testing"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newLinkFixture() (*LinkService, *MockLinkRepository, *MockDocumentRepository, *MockGroupRepository, *fakeTxRunner) {
	linkRepo := new(MockLinkRepository)
	docRepo := new(MockDocumentRepository)
	groupRepo := new(MockGroupRepository)
	txRunner := &fakeTxRunner{links: linkRepo, qaLogs: new(MockQALogRepository)}
	svc := NewLinkService(linkRepo, docRepo, groupRepo, txRunner)
	return svc, linkRepo, docRepo, groupRepo, txRunner
}

func ownedDoc(id, userID string) *domain.Document {
	return &domain.Document{
		ID:               id,
		UserID:           userID,
		OriginalFileName: "intro.pdf",
		BlobPath:         userID + "/" + id + "/intro.pdf",
		Status:           domain.DocumentStatusProcessed,
	}
}

func TestLinkService_CreateLink_Fresh(t *testing.T) {
	ctx := context.Background()
	svc, linkRepo, docRepo, _, _ := newLinkFixture()

	docRepo.On("GetByID", ctx, "doc-1").Return(ownedDoc("doc-1", "user-1"), nil)
	linkRepo.On("FindActiveByTarget", ctx, "user-1", "doc-1", "").Return(nil, domain.ErrLinkNotFound)
	linkRepo.On("Create", ctx, mock.MatchedBy(func(l *domain.Link) bool {
		return l.UserID == "user-1" && l.DocumentID == "doc-1" && l.IsActive && len(l.ID) == 16
	})).Return(nil)

	link, err := svc.CreateLink(ctx, "user-1", CreateLinkInput{DocumentID: "doc-1", Title: "소개서 공유"})

	require.NoError(t, err)
	assert.Len(t, link.ID, 16)
	assert.Equal(t, "public", link.Visibility)
	linkRepo.AssertExpectations(t)
}

func TestLinkService_CreateLink_ReusesActiveLink(t *testing.T) {
	ctx := context.Background()
	svc, linkRepo, docRepo, _, txRunner := newLinkFixture()

	existing := &domain.Link{
		ID:         "existinglink0001",
		UserID:     "user-1",
		DocumentID: "doc-1",
		IsActive:   true,
	}

	docRepo.On("GetByID", ctx, "doc-1").Return(ownedDoc("doc-1", "user-1"), nil)
	linkRepo.On("FindActiveByTarget", ctx, "user-1", "doc-1", "").Return(existing, nil)

	link, err := svc.CreateLink(ctx, "user-1", CreateLinkInput{DocumentID: "doc-1"})

	require.NoError(t, err)
	assert.Equal(t, existing, link)
	linkRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Equal(t, 0, txRunner.calls)
}

func TestLinkService_CreateLink_RotatesExpiredLink(t *testing.T) {
	ctx := context.Background()
	svc, linkRepo, docRepo, _, txRunner := newLinkFixture()

	past := time.Now().UTC().Add(-time.Hour)
	expired := &domain.Link{
		ID:         "expiredlink00001",
		UserID:     "user-1",
		DocumentID: "doc-1",
		IsActive:   true,
		ExpiresAt:  &past,
	}

	docRepo.On("GetByID", ctx, "doc-1").Return(ownedDoc("doc-1", "user-1"), nil)
	linkRepo.On("FindActiveByTarget", ctx, "user-1", "doc-1", "").Return(expired, nil)
	linkRepo.On("Deactivate", ctx, "expiredlink00001").Return(nil)
	linkRepo.On("Create", ctx, mock.MatchedBy(func(l *domain.Link) bool {
		return l.ID != expired.ID && l.IsActive && l.DocumentID == "doc-1"
	})).Return(nil)

	link, err := svc.CreateLink(ctx, "user-1", CreateLinkInput{DocumentID: "doc-1"})

	require.NoError(t, err)
	assert.NotEqual(t, expired.ID, link.ID)
	assert.Equal(t, 1, txRunner.calls)
	linkRepo.AssertExpectations(t)
}

func TestLinkService_CreateLink_ConflictingScope(t *testing.T) {
	svc, _, _, _, _ := newLinkFixture()

	_, err := svc.CreateLink(context.Background(), "user-1", CreateLinkInput{
		DocumentID: "doc-1",
		GroupID:    "group-1",
	})

	assert.Equal(t, domain.ErrConflictingLinkScope, err)
}

func TestLinkService_CreateLink_NoTarget(t *testing.T) {
	svc, _, _, _, _ := newLinkFixture()

	_, err := svc.CreateLink(context.Background(), "user-1", CreateLinkInput{})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestLinkService_CreateLink_ForeignDocument(t *testing.T) {
	ctx := context.Background()
	svc, linkRepo, docRepo, _, _ := newLinkFixture()

	docRepo.On("GetByID", ctx, "doc-1").Return(ownedDoc("doc-1", "someone-else"), nil)

	_, err := svc.CreateLink(ctx, "user-1", CreateLinkInput{DocumentID: "doc-1"})

	assert.Equal(t, domain.ErrDocumentNotFound, err)
	linkRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLinkService_CreateLink_GroupTarget(t *testing.T) {
	ctx := context.Background()
	svc, linkRepo, _, groupRepo, _ := newLinkFixture()

	groupRepo.On("GetByID", ctx, "group-1").Return(&domain.DocumentGroup{
		ID:     "group-1",
		UserID: "user-1",
		Name:   "이력서",
	}, nil)
	linkRepo.On("FindActiveByTarget", ctx, "user-1", "", "group-1").Return(nil, domain.ErrLinkNotFound)
	linkRepo.On("Create", ctx, mock.MatchedBy(func(l *domain.Link) bool {
		return l.GroupID == "group-1" && l.DocumentID == ""
	})).Return(nil)

	_, err := svc.CreateLink(ctx, "user-1", CreateLinkInput{GroupID: "group-1"})

	require.NoError(t, err)
	linkRepo.AssertExpectations(t)
}

func TestLinkService_DeactivateLink_ForeignLink(t *testing.T) {
	ctx := context.Background()
	svc, linkRepo, _, _, _ := newLinkFixture()

	linkRepo.On("GetByID", ctx, "lnk_1").Return(&domain.Link{
		ID:         "lnk_1",
		UserID:     "someone-else",
		DocumentID: "doc-1",
		IsActive:   true,
	}, nil)

	err := svc.DeactivateLink(ctx, "user-1", "lnk_1")

	assert.Equal(t, domain.ErrLinkNotFound, err)
	linkRepo.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
}

func TestLinkService_DeactivateLink(t *testing.T) {
	ctx := context.Background()
	svc, linkRepo, _, _, _ := newLinkFixture()

	linkRepo.On("GetByID", ctx, "lnk_1").Return(&domain.Link{
		ID:         "lnk_1",
		UserID:     "user-1",
		DocumentID: "doc-1",
		IsActive:   true,
	}, nil)
	linkRepo.On("Deactivate", ctx, "lnk_1").Return(nil)

	require.NoError(t, svc.DeactivateLink(ctx, "user-1", "lnk_1"))
	linkRepo.AssertExpectations(t)
}
