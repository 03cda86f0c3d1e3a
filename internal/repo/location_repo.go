// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Location
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a location is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prismhq/go-queue-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateLocation inserts a new Location row owned by ownerID. The location ID
// is a randomly generated UUID (string), and CreatedAt is set to UTC. The QR
// join URL is derived from the generated ID before insert.
func CreateLocation(ctx context.Context, db *gorm.DB, ownerID, name, address, phone string) (*domain.Location, error) {
	l := &domain.Location{
		ID:        uuid.NewString(),
		Name:      name,
		Address:   address,
		Phone:     phone,
		OwnerID:   ownerID,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	l.QRCodeURL = "/queue/join?location_id=" + l.ID
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// GetLocation fetches a single location by its ID. If the record does not
// exist, it returns ErrNotFound. On other DB errors, the raw error is
// returned.
func GetLocation(ctx context.Context, db *gorm.DB, id string) (*domain.Location, error) {
	var l domain.Location
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLocations returns all locations owned by ownerID, ordered by creation
// time descending. On DB error, it returns the error.
func ListLocations(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.Location, error) {
	var out []domain.Location
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ListAllLocations returns every location regardless of owner (admin view),
// ordered by creation time descending.
func ListAllLocations(ctx context.Context, db *gorm.DB) ([]domain.Location, error) {
	var out []domain.Location
	err := db.WithContext(ctx).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// SetLocationActive toggles the is_active switch on a location, enforcing
// owner scope. If no rows are affected (location missing or not owned by
// ownerID), it returns ErrNotFound.
func SetLocationActive(ctx context.Context, db *gorm.DB, id, ownerID string, active bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Location{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountLocations returns the total number of locations owned by ownerID.
// An empty ownerID counts every location (admin dashboard).
func CountLocations(ctx context.Context, db *gorm.DB, ownerID string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Location{})
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// LocationIDs returns the IDs of every location owned by ownerID. Used to
// scope dashboard aggregates to an owner without joining in the caller.
func LocationIDs(ctx context.Context, db *gorm.DB, ownerID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Location{}).
		Where("owner_id = ?", ownerID).
		Pluck("id", &ids).Error
	return ids, err
}
