//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
	"github.com/dobbyjj/codeme/internal/service"
	"github.com/dobbyjj/codeme/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUser(ctx context.Context, t *testing.T, userRepo *UserRepository) *domain.User {
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hashed",
		Provider:     "local",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, userRepo.Create(ctx, user))
	return user
}

func setupDocument(ctx context.Context, t *testing.T, docRepo *DocumentRepository, userID string) *domain.Document {
	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := &domain.Document{
		ID:               uuid.NewString(),
		UserID:           userID,
		Title:            "intro",
		OriginalFileName: "intro.pdf",
		MimeType:         "application/pdf",
		SizeBytes:        1024,
		BlobPath:         userID + "/intro.pdf",
		Source:           "upload",
		Status:           domain.DocumentStatusProcessed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, docRepo.Create(ctx, doc))
	return doc
}

func TestLinkRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	docRepo := NewDocumentRepository(pool)
	linkRepo := NewLinkRepository(pool)

	user := setupUser(ctx, t, userRepo)
	doc := setupDocument(ctx, t, docRepo, user.ID)

	link := &domain.Link{
		ID:         "abcdefgh12345678",
		UserID:     user.ID,
		DocumentID: doc.ID,
		Title:      "소개서 공유",
		IsActive:   true,
		Visibility: "public",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, linkRepo.Create(ctx, link))

	got, err := linkRepo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.DocumentID)
	assert.Empty(t, got.GroupID)
	assert.True(t, got.IsActive)
	assert.Equal(t, 0, got.AccessCount)
}

func TestLinkRepository_SingleTargetConstraint(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	linkRepo := NewLinkRepository(pool)

	user := setupUser(ctx, t, userRepo)

	err := linkRepo.Create(ctx, &domain.Link{
		ID:        "notargets1234567",
		UserID:    user.ID,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	assert.Error(t, err)
}

func TestLinkRepository_FindActiveByTarget(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	docRepo := NewDocumentRepository(pool)
	linkRepo := NewLinkRepository(pool)

	user := setupUser(ctx, t, userRepo)
	doc := setupDocument(ctx, t, docRepo, user.ID)

	_, err := linkRepo.FindActiveByTarget(ctx, user.ID, doc.ID, "")
	assert.Equal(t, domain.ErrLinkNotFound, err)

	active := &domain.Link{
		ID:         "activelink123456",
		UserID:     user.ID,
		DocumentID: doc.ID,
		IsActive:   true,
		Visibility: "public",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, linkRepo.Create(ctx, active))

	inactive := &domain.Link{
		ID:         "inactivelink1234",
		UserID:     user.ID,
		DocumentID: doc.ID,
		IsActive:   false,
		Visibility: "public",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, linkRepo.Create(ctx, inactive))

	got, err := linkRepo.FindActiveByTarget(ctx, user.ID, doc.ID, "")
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)
}

func TestLinkRepository_IncrementAccess(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	docRepo := NewDocumentRepository(pool)
	linkRepo := NewLinkRepository(pool)

	user := setupUser(ctx, t, userRepo)
	doc := setupDocument(ctx, t, docRepo, user.ID)

	link := &domain.Link{
		ID:         "counterlink12345",
		UserID:     user.ID,
		DocumentID: doc.ID,
		IsActive:   true,
		Visibility: "public",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, linkRepo.Create(ctx, link))

	accessedAt := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, linkRepo.IncrementAccess(ctx, link.ID, accessedAt))
	require.NoError(t, linkRepo.IncrementAccess(ctx, link.ID, accessedAt))

	got, err := linkRepo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
	require.NotNil(t, got.LastAccessedAt)
	assert.WithinDuration(t, accessedAt, *got.LastAccessedAt, time.Second)
}

func TestLinkRepository_DeactivateExpired(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	docRepo := NewDocumentRepository(pool)
	linkRepo := NewLinkRepository(pool)

	user := setupUser(ctx, t, userRepo)
	doc := setupDocument(ctx, t, docRepo, user.ID)

	now := time.Now().UTC().Truncate(time.Microsecond)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := &domain.Link{
		ID: "expiredlink12345", UserID: user.ID, DocumentID: doc.ID,
		IsActive: true, ExpiresAt: &past, Visibility: "public", CreatedAt: now,
	}
	fresh := &domain.Link{
		ID: "freshlink1234567", UserID: user.ID, DocumentID: doc.ID,
		IsActive: true, ExpiresAt: &future, Visibility: "public", CreatedAt: now,
	}
	require.NoError(t, linkRepo.Create(ctx, expired))
	require.NoError(t, linkRepo.Create(ctx, fresh))

	affected, err := linkRepo.DeactivateExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := linkRepo.GetByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	got, err = linkRepo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestTxRunner_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	docRepo := NewDocumentRepository(pool)
	linkRepo := NewLinkRepository(pool)

	user := setupUser(ctx, t, userRepo)
	doc := setupDocument(ctx, t, docRepo, user.ID)

	link := &domain.Link{
		ID:         "txtestlink123456",
		UserID:     user.ID,
		DocumentID: doc.ID,
		IsActive:   true,
		Visibility: "public",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, linkRepo.Create(ctx, link))

	runner := NewTxRunner(pool)
	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		if err := repos.Links().IncrementAccess(ctx, link.ID, time.Now().UTC()); err != nil {
			return err
		}
		// The unknown user violates the foreign key and fails the write.
		return repos.QALogs().Create(ctx, &domain.QALog{
			ID: uuid.NewString(), UserID: "missing-user", Question: "q",
			Status: domain.QAStatusSuccess, CreatedAt: time.Now().UTC(),
		})
	})
	require.Error(t, err)

	got, err := linkRepo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AccessCount, "access bump must roll back with the failed log write")
}
