package service

import (
	"context"
	"strings"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
)

type GroupRepository interface {
	Create(ctx context.Context, group *domain.DocumentGroup) error
	GetByID(ctx context.Context, id string) (*domain.DocumentGroup, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.DocumentGroup, error)
	Update(ctx context.Context, group *domain.DocumentGroup) error
	Delete(ctx context.Context, id string) error
}

// CreateGroupInput describes a document group to create.
type CreateGroupInput struct {
	Name          string
	Description   string
	PersonaPrompt string
}

// UpdateGroupInput carries the fields to change. Nil fields are left as is.
type UpdateGroupInput struct {
	Name          *string
	Description   *string
	PersonaPrompt *string
}

// GroupService manages document groups and their persona prompts. All reads
// and writes are owner-scoped; a foreign group behaves like a missing one.
type GroupService struct {
	groupRepo GroupRepository
	docRepo   DocumentRepository
	uuidGen   UUIDGenerator
}

func NewGroupService(groupRepo GroupRepository, docRepo DocumentRepository, uuidGen UUIDGenerator) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		docRepo:   docRepo,
		uuidGen:   uuidGen,
	}
}

func (s *GroupService) CreateGroup(ctx context.Context, userID string, input CreateGroupInput) (*domain.DocumentGroup, error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "group name is required")
	}

	now := time.Now().UTC()
	group := &domain.DocumentGroup{
		ID:            s.uuidGen.NewString(),
		UserID:        userID,
		Name:          name,
		Description:   input.Description,
		PersonaPrompt: input.PersonaPrompt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := domain.ValidateDocumentGroup(group); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid group", err)
	}

	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}

	return group, nil
}

func (s *GroupService) GetGroup(ctx context.Context, userID, groupID string) (*domain.DocumentGroup, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.UserID != userID {
		return nil, domain.ErrGroupNotFound
	}
	return group, nil
}

func (s *GroupService) ListGroups(ctx context.Context, userID string) ([]*domain.DocumentGroup, error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	return s.groupRepo.GetByUserID(ctx, userID)
}

func (s *GroupService) UpdateGroup(ctx context.Context, userID, groupID string, input UpdateGroupInput) (*domain.DocumentGroup, error) {
	group, err := s.GetGroup(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "group name is required")
		}
		group.Name = name
	}
	if input.Description != nil {
		group.Description = *input.Description
	}
	if input.PersonaPrompt != nil {
		group.PersonaPrompt = *input.PersonaPrompt
	}
	group.UpdatedAt = time.Now().UTC()

	if err := s.groupRepo.Update(ctx, group); err != nil {
		return nil, err
	}

	return group, nil
}

// DeleteGroup removes a group. Documents in the group revert to ungrouped;
// links targeting the group are removed with it.
func (s *GroupService) DeleteGroup(ctx context.Context, userID, groupID string) error {
	if _, err := s.GetGroup(ctx, userID, groupID); err != nil {
		return err
	}
	return s.groupRepo.Delete(ctx, groupID)
}

// ListGroupDocuments returns the documents in a group owned by the caller.
func (s *GroupService) ListGroupDocuments(ctx context.Context, userID, groupID string) ([]*domain.Document, error) {
	if _, err := s.GetGroup(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return s.docRepo.GetByGroupID(ctx, groupID)
}
