package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ExpiredLinkStore deactivates share links whose expiry has passed.
type ExpiredLinkStore interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// ExpiredTokenStore deletes auth tokens whose expiry has passed.
type ExpiredTokenStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LinkSweeper periodically retires expired share links and auth tokens.
// Expiry is also enforced at read time, so the sweeper only keeps the
// tables tidy and the expires_at index small.
type LinkSweeper struct {
	links  ExpiredLinkStore
	tokens ExpiredTokenStore
}

// NewLinkSweeper creates a new LinkSweeper instance
func NewLinkSweeper(links ExpiredLinkStore, tokens ExpiredTokenStore) *LinkSweeper {
	return &LinkSweeper{
		links:  links,
		tokens: tokens,
	}
}

// ProcessJobs runs one sweep pass
func (s *LinkSweeper) ProcessJobs(ctx context.Context) error {
	now := time.Now().UTC()

	deactivated, err := s.links.DeactivateExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to deactivate expired links: %w", err)
	}
	if deactivated > 0 {
		log.Printf("Deactivated %d expired links", deactivated)
	}

	if s.tokens != nil {
		deleted, err := s.tokens.DeleteExpired(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to delete expired tokens: %w", err)
		}
		if deleted > 0 {
			log.Printf("Deleted %d expired auth tokens", deleted)
		}
	}

	return nil
}
