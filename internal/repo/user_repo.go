// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// Uniqueness of username and email is enforced by the store's unique indexes
// rather than by scanning rows in the request path.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prismhq/go-queue-backend/internal/domain"
)

// CreateUser inserts a new user row with a bcrypt password hash already
// computed by the caller. The user ID is a randomly generated UUID.
// Unique-constraint violations on username/email propagate as the raw
// gorm error for the service layer to classify.
func CreateUser(ctx context.Context, db *gorm.DB, username, email, hashedPassword string, isAdmin bool) (*domain.User, error) {
	u := &domain.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		IsActive:       true,
		IsAdmin:        isAdmin,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByUsername fetches a user by username, or ErrNotFound.
func GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("username = ?", username).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser fetches a user by ID, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}
