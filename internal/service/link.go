package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
)

// linkIDBytes yields a 16-character URL-safe link identifier.
const linkIDBytes = 12

type LinkRepository interface {
	Create(ctx context.Context, link *domain.Link) error
	GetByID(ctx context.Context, id string) (*domain.Link, error)
	FindActiveByTarget(ctx context.Context, userID, documentID, groupID string) (*domain.Link, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.Link, error)
	Deactivate(ctx context.Context, id string) error
	IncrementAccess(ctx context.Context, id string, accessedAt time.Time) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// CreateLinkInput describes a share link to create. Exactly one of DocumentID
// and GroupID must be set.
type CreateLinkInput struct {
	DocumentID string
	GroupID    string
	Title      string
	ExpiresAt  *time.Time
	Visibility string
}

// LinkService manages share links. Link IDs double as the public capability,
// so they are generated from a CSPRNG and never reused.
type LinkService struct {
	linkRepo  LinkRepository
	docRepo   DocumentRepository
	groupRepo GroupRepository
	txRunner  TxRunner
}

func NewLinkService(linkRepo LinkRepository, docRepo DocumentRepository, groupRepo GroupRepository, txRunner TxRunner) *LinkService {
	return &LinkService{
		linkRepo:  linkRepo,
		docRepo:   docRepo,
		groupRepo: groupRepo,
		txRunner:  txRunner,
	}
}

// CreateLink returns a usable link for the target, reusing an existing active
// unexpired one rather than minting duplicates. An expired link on the target
// is deactivated and replaced with a fresh ID in the same transaction, so the
// old URL stays dead.
func (s *LinkService) CreateLink(ctx context.Context, userID string, input CreateLinkInput) (*domain.Link, error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	if input.DocumentID != "" && input.GroupID != "" {
		return nil, domain.ErrConflictingLinkScope
	}
	if input.DocumentID == "" && input.GroupID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "link must target a document or a group")
	}

	if input.DocumentID != "" {
		doc, err := s.docRepo.GetByID(ctx, input.DocumentID)
		if err != nil {
			return nil, err
		}
		if doc.UserID != userID {
			return nil, domain.ErrDocumentNotFound
		}
	} else {
		group, err := s.groupRepo.GetByID(ctx, input.GroupID)
		if err != nil {
			return nil, err
		}
		if group.UserID != userID {
			return nil, domain.ErrGroupNotFound
		}
	}

	now := time.Now().UTC()

	existing, err := s.linkRepo.FindActiveByTarget(ctx, userID, input.DocumentID, input.GroupID)
	if err != nil && err != domain.ErrLinkNotFound {
		return nil, err
	}
	if existing != nil && existing.IsUsable(now) {
		return existing, nil
	}

	id, err := generateLinkID()
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate link ID", err)
	}

	visibility := input.Visibility
	if visibility == "" {
		visibility = "public"
	}

	link := &domain.Link{
		ID:         id,
		UserID:     userID,
		DocumentID: input.DocumentID,
		GroupID:    input.GroupID,
		Title:      input.Title,
		IsActive:   true,
		ExpiresAt:  input.ExpiresAt,
		Visibility: visibility,
		CreatedAt:  now,
	}
	if err := domain.ValidateLink(link); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid link", err)
	}

	if existing != nil {
		err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Links().Deactivate(ctx, existing.ID); err != nil {
				return err
			}
			return repos.Links().Create(ctx, link)
		})
	} else {
		err = s.linkRepo.Create(ctx, link)
	}
	if err != nil {
		return nil, err
	}

	return link, nil
}

// GetLink returns a link owned by the caller.
func (s *LinkService) GetLink(ctx context.Context, userID, linkID string) (*domain.Link, error) {
	link, err := s.linkRepo.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.UserID != userID {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

// ListLinks returns all links owned by the user, newest first.
func (s *LinkService) ListLinks(ctx context.Context, userID string) ([]*domain.Link, error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	return s.linkRepo.GetByUserID(ctx, userID)
}

// DeactivateLink revokes a link owned by the caller.
func (s *LinkService) DeactivateLink(ctx context.Context, userID, linkID string) error {
	link, err := s.linkRepo.GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	if link.UserID != userID {
		return domain.ErrLinkNotFound
	}
	return s.linkRepo.Deactivate(ctx, link.ID)
}

func generateLinkID() (string, error) {
	buf := make([]byte, linkIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
