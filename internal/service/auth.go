package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dobbyjj/codeme/internal/domain"
)

const (
	tokenPrefix = "cdm_"
	tokenTTL    = 7 * 24 * time.Hour

	minPasswordLen = 8
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

type AuthTokenRepository interface {
	Create(ctx context.Context, token *domain.AuthToken) error
	GetByHash(ctx context.Context, hash string) (*domain.AuthToken, error)
	DeleteByHash(ctx context.Context, hash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuthService handles registration, login and bearer token validation.
// Passwords are stored as bcrypt hashes; issued tokens are opaque random
// strings stored only as SHA-256 hashes.
type AuthService struct {
	userRepo  UserRepository
	tokenRepo AuthTokenRepository
	uuidGen   UUIDGenerator
}

func NewAuthService(userRepo UserRepository, tokenRepo AuthTokenRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		uuidGen:   uuidGen,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "a valid email is required")
	}
	if len(password) < minPasswordLen {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "password must be at least 8 characters")
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailAlreadyExists
	} else if err != domain.ErrUserNotFound {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to hash password", err)
	}

	user := &domain.User{
		ID:           s.uuidGen.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(name),
		Provider:     "local",
		CreatedAt:    time.Now().UTC(),
	}
	if err := domain.ValidateUser(user); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid user", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login verifies credentials and issues a bearer token. Unknown emails and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if err == domain.ErrUserNotFound {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := generateAuthToken()
	if err != nil {
		return "", nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate token", err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(tokenTTL)
	record := &domain.AuthToken{
		ID:        s.uuidGen.NewString(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return "", nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return "", nil, err
	}
	user.LastLoginAt = &now

	return token, user, nil
}

// ValidateToken resolves a bearer token to its user ID. Malformed, unknown
// and expired tokens all return ErrInvalidToken.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (string, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return "", domain.ErrInvalidToken
	}

	record, err := s.tokenRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		return "", domain.ErrInvalidToken
	}
	if record.ExpiresAt.Before(time.Now().UTC()) {
		return "", domain.ErrInvalidToken
	}

	return record.UserID, nil
}

// Logout revokes the given token. Revoking an unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil
	}
	return s.tokenRepo.DeleteByHash(ctx, hashToken(token))
}

// GetUser returns a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// PurgeExpiredTokens deletes tokens past their expiry.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokenRepo.DeleteExpired(ctx, time.Now().UTC())
}

func generateAuthToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return tokenPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
