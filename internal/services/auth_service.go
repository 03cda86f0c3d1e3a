// Package services – AuthService
//
// This file implements the AuthService, which exchanges a username/password
// pair for a signed bearer token and resolves the current principal. Failed
// logins and disabled accounts both surface as ErrInvalidCredentials so the
// API does not leak which usernames exist.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/prismhq/go-queue-backend/internal/domain"
	"github.com/prismhq/go-queue-backend/internal/repo"
	"github.com/prismhq/go-queue-backend/internal/security"
)

// AuthService implements login and principal lookup.
type AuthService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Tokens signs and verifies bearer tokens.
	Tokens *security.TokenManager
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, tm *security.TokenManager) *AuthService {
	return &AuthService{DB: db, Tokens: tm}
}

// Login verifies the credentials and returns a signed access token together
// with the account. Bad credentials and inactive accounts are deliberately
// indistinguishable.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := repo.GetUserByUsername(ctx, s.DB, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, storeErr(err)
	}
	if !user.IsActive || !security.CheckPassword(user.HashedPassword, password) {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.Tokens.Sign(user.ID, user.IsAdmin)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Me returns the account behind a principal, or ErrInvalidCredentials when
// the account no longer exists or has been disabled since the token was
// issued.
func (s *AuthService) Me(ctx context.Context, p Principal) (*domain.User, error) {
	user, err := repo.GetUser(ctx, s.DB, p.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr(err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Register creates a new account. Exposed for seeding and the admin user
// endpoint; uniqueness of username/email is enforced by the store.
func (s *AuthService) Register(ctx context.Context, username, email, password string, isAdmin bool) (*domain.User, error) {
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := repo.CreateUser(ctx, s.DB, username, email, hash, isAdmin)
	if err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}
