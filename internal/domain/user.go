package domain

import (
	"fmt"
	"time"
)

// User represents an account owning documents, groups, links and QA logs.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Provider     string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// AuthToken is an opaque bearer credential issued at login. Only the SHA-256
// hash of the token is stored.
type AuthToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ValidateUser validates a User instance
func ValidateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}
	if u.Email == "" {
		return fmt.Errorf("user Email is required")
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("user PasswordHash is required")
	}
	return nil
}
