// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the QueueEntry
// model.
//
// Position arithmetic lives in the service layer; the functions here only
// compose the queries it needs. Every function that participates in position
// assignment (CountActiveEntries, CreateEntry, ShiftPositionsAfter) is meant
// to be called on a transaction-bound handle so that count-then-insert and
// depart-then-compact remain atomic units.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prismhq/go-queue-backend/internal/domain"
)

// activeStatuses are the states in which an entry still holds a position.
var activeStatuses = []string{domain.StatusWaiting, domain.StatusNotified}

// CountActiveEntries returns the number of waiting/notified entries at a
// location. Called inside a join transaction to compute the next position.
func CountActiveEntries(ctx context.Context, db *gorm.DB, locationID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.QueueEntry{}).
		Where("location_id = ? AND status IN ?", locationID, activeStatuses).
		Count(&total).Error
	return total, err
}

// FindActiveEntryByPhone returns the waiting/notified entry for a customer
// phone at a location, or ErrNotFound when the customer is not in line.
func FindActiveEntryByPhone(ctx context.Context, db *gorm.DB, locationID, phone string) (*domain.QueueEntry, error) {
	var e domain.QueueEntry
	err := db.WithContext(ctx).
		Where("location_id = ? AND customer_phone = ? AND status IN ?", locationID, phone, activeStatuses).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEntry inserts a new waiting entry at the given position. The entry ID
// is a randomly generated UUID and CreatedAt is set to UTC.
func CreateEntry(ctx context.Context, db *gorm.DB, locationID, name, phone string, position, waitMinutes int) (*domain.QueueEntry, error) {
	e := &domain.QueueEntry{
		ID:                uuid.NewString(),
		CustomerName:      name,
		CustomerPhone:     phone,
		LocationID:        locationID,
		Position:          position,
		Status:            domain.StatusWaiting,
		EstimatedWaitTime: waitMinutes,
		CreatedAt:         time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntry fetches a single queue entry by ID, or ErrNotFound.
func GetEntry(ctx context.Context, db *gorm.DB, id string) (*domain.QueueEntry, error) {
	var e domain.QueueEntry
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// EntryExists reports whether a queue entry row exists, without loading it.
// Used by the tracking fast path to validate cache hits cheaply.
func EntryExists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.QueueEntry{}).
		Where("id = ?", id).
		Count(&n).Error
	return n > 0, err
}

// ListActiveEntries returns the waiting/notified entries at a location ordered
// by position ascending (the "next up" view).
func ListActiveEntries(ctx context.Context, db *gorm.DB, locationID string) ([]domain.QueueEntry, error) {
	var out []domain.QueueEntry
	err := db.WithContext(ctx).
		Where("location_id = ? AND status IN ?", locationID, activeStatuses).
		Order("position asc").
		Find(&out).Error
	return out, err
}

// UpdateEntryStatus persists a status transition together with its timestamp
// columns. Only the provided fields are written; the caller decides which
// timestamps accompany the transition.
func UpdateEntryStatus(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.QueueEntry{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ShiftPositionsAfter decrements the position of every waiting/notified entry
// at a location whose position is greater than departed, and recomputes each
// estimated wait as position × waitPerPersonMin. Used to compact the line
// when an entry leaves it. Must run on the same transaction as the departure
// update.
func ShiftPositionsAfter(ctx context.Context, db *gorm.DB, locationID string, departed, waitPerPersonMin int) error {
	return db.WithContext(ctx).
		Model(&domain.QueueEntry{}).
		Where("location_id = ? AND status IN ? AND position > ?", locationID, activeStatuses, departed).
		UpdateColumns(map[string]any{
			"position":            gorm.Expr("position - 1"),
			"estimated_wait_time": gorm.Expr("(position - 1) * ?", waitPerPersonMin),
			"updated_at":          time.Now().UTC(),
		}).Error
}

// CountActiveEntriesForLocations returns the number of waiting/notified
// entries across a set of locations. A nil slice counts every location
// (admin dashboard); an empty non-nil slice returns 0.
func CountActiveEntriesForLocations(ctx context.Context, db *gorm.DB, locationIDs []string) (int64, error) {
	q := db.WithContext(ctx).
		Model(&domain.QueueEntry{}).
		Where("status IN ?", activeStatuses)
	if locationIDs != nil {
		if len(locationIDs) == 0 {
			return 0, nil
		}
		q = q.Where("location_id IN ?", locationIDs)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// CountEntriesSince returns the number of entries created at or after the
// given instant across a set of locations (nil = all locations).
func CountEntriesSince(ctx context.Context, db *gorm.DB, locationIDs []string, since time.Time) (int64, error) {
	q := db.WithContext(ctx).
		Model(&domain.QueueEntry{}).
		Where("created_at >= ?", since)
	if locationIDs != nil {
		if len(locationIDs) == 0 {
			return 0, nil
		}
		q = q.Where("location_id IN ?", locationIDs)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}
