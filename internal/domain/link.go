package domain

import (
	"fmt"
	"time"
)

// Link is a capability token granting scoped, possibly anonymous,
// question-answering access to a single document or a group.
type Link struct {
	ID             string
	UserID         string
	DocumentID     string
	GroupID        string
	Title          string
	IsActive       bool
	ExpiresAt      *time.Time
	Visibility     string
	CreatedAt      time.Time
	LastAccessedAt *time.Time
	AccessCount    int
}

// IsExpired reports whether the link has an expiry in the past.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// IsUsable reports whether the link grants access at the given time.
// Inactive and expired links are treated the same as nonexistent ones.
func (l *Link) IsUsable(now time.Time) bool {
	return l.IsActive && !l.IsExpired(now)
}

// ValidateLink validates a Link instance. A link targets exactly one of a
// document or a group.
func ValidateLink(l *Link) error {
	if l == nil {
		return fmt.Errorf("link cannot be nil")
	}
	if l.ID == "" {
		return fmt.Errorf("link ID is required")
	}
	if l.UserID == "" {
		return fmt.Errorf("link UserID is required")
	}
	if l.DocumentID == "" && l.GroupID == "" {
		return fmt.Errorf("link must target a document or a group")
	}
	if l.DocumentID != "" && l.GroupID != "" {
		return fmt.Errorf("link cannot target both a document and a group")
	}
	return nil
}
