package domain

import (
	"fmt"
	"time"
)

// DocumentGroup owns a set of documents and may carry a persona prompt that
// replaces the default system instruction for questions scoped to the group.
type DocumentGroup struct {
	ID            string
	UserID        string
	Name          string
	Description   string
	PersonaPrompt string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateDocumentGroup validates a DocumentGroup instance
func ValidateDocumentGroup(g *DocumentGroup) error {
	if g == nil {
		return fmt.Errorf("document group cannot be nil")
	}
	if g.ID == "" {
		return fmt.Errorf("document group ID is required")
	}
	if g.UserID == "" {
		return fmt.Errorf("document group UserID is required")
	}
	if g.Name == "" {
		return fmt.Errorf("document group Name is required")
	}
	return nil
}
