// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// by the dashboard endpoints. Each function is context-aware and safe to call
// from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DashboardStats aggregates the owner/admin dashboard counters.
type DashboardStats struct {
	TotalLocations      int64 `json:"total_locations"`
	ActiveQueues        int64 `json:"active_queues"`
	TotalCustomersToday int64 `json:"total_customers_today"`
}

// QueueDashboard returns dashboard counters scoped to one owner, or across
// every location when ownerID is empty (admin view). "Today" is measured from
// midnight UTC.
func QueueDashboard(ctx context.Context, db *gorm.DB, ownerID string, now time.Time) (DashboardStats, error) {
	var (
		out DashboardStats
		err error
		ids []string // nil = all locations
	)

	if ownerID != "" {
		ids, err = LocationIDs(ctx, db, ownerID)
		if err != nil {
			return out, err
		}
	}

	if out.TotalLocations, err = CountLocations(ctx, db, ownerID); err != nil {
		return out, err
	}
	if out.ActiveQueues, err = CountActiveEntriesForLocations(ctx, db, ids); err != nil {
		return out, err
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if out.TotalCustomersToday, err = CountEntriesSince(ctx, db, ids, midnight); err != nil {
		return out, err
	}
	return out, nil
}

// SubmissionStats aggregates the contact-form triage counters.
type SubmissionStats struct {
	Total   int64 `json:"total"`
	New     int64 `json:"new"`
	Review  int64 `json:"review"`
	Flagged int64 `json:"flagged"`
	Today   int64 `json:"today"`
}

// ContactDashboard returns submission counters for the admin panel. "Today"
// is measured from midnight UTC.
func ContactDashboard(ctx context.Context, db *gorm.DB, now time.Time) (SubmissionStats, error) {
	var (
		out SubmissionStats
		err error
	)
	if out.Total, err = CountSubmissions(ctx, db, ""); err != nil {
		return out, err
	}
	if out.New, err = CountSubmissions(ctx, db, "new"); err != nil {
		return out, err
	}
	if out.Review, err = CountSubmissions(ctx, db, "review"); err != nil {
		return out, err
	}
	if out.Flagged, err = CountSubmissions(ctx, db, "flagged"); err != nil {
		return out, err
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if out.Today, err = CountSubmissionsSince(ctx, db, midnight); err != nil {
		return out, err
	}
	return out, nil
}
