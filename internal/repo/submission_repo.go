// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ContactSubmission model used by the contact intake and admin triage
// endpoints.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prismhq/go-queue-backend/internal/domain"
)

// CreateSubmission persists an accepted contact submission. The submission ID
// is a randomly generated UUID and SubmissionTime is set to UTC. The caller is
// responsible for the routed status and bot score; honeypot-triggered
// submissions must never reach this function.
func CreateSubmission(ctx context.Context, db *gorm.DB, s *domain.ContactSubmission) (*domain.ContactSubmission, error) {
	s.ID = uuid.NewString()
	s.SubmissionTime = time.Now().UTC()
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSubmission fetches a single submission by ID, or ErrNotFound.
func GetSubmission(ctx context.Context, db *gorm.DB, id string) (*domain.ContactSubmission, error) {
	var s domain.ContactSubmission
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSubmissionsPage returns a page of submissions ordered by submission
// time descending, optionally filtered by status (empty string = all).
// Use CountSubmissions for pagination metadata.
func ListSubmissionsPage(ctx context.Context, db *gorm.DB, status string, offset, limit int) ([]domain.ContactSubmission, error) {
	q := db.WithContext(ctx).Model(&domain.ContactSubmission{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.ContactSubmission
	err := q.
		Order("submission_time desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountSubmissions returns the total number of submissions, optionally
// filtered by status (empty string = all).
func CountSubmissions(ctx context.Context, db *gorm.DB, status string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.ContactSubmission{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// CountSubmissionsSince returns the number of submissions received at or
// after the given instant.
func CountSubmissionsSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ContactSubmission{}).
		Where("submission_time >= ?", since).
		Count(&total).Error
	return total, err
}

// UpdateSubmission applies admin triage changes (is_read, is_flagged, status)
// to a submission. Only the provided fields are written. Returns ErrNotFound
// when the submission does not exist.
func UpdateSubmission(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.ContactSubmission{}).
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

// DeleteSubmission removes a submission permanently. Returns ErrNotFound when
// the submission does not exist.
func DeleteSubmission(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Unscoped().
		Where("id = ?", id).
		Delete(&domain.ContactSubmission{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
