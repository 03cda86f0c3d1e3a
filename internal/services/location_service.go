// Package services – LocationService
//
// This file implements the LocationService, which manages the sites that
// operate virtual queues: creation with a derived QR join link, owner and
// admin listings, soft-disabling, and the dashboard aggregates.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/prismhq/go-queue-backend/internal/domain"
	"github.com/prismhq/go-queue-backend/internal/repo"
)

// LocationService provides location lifecycle operations and dashboard
// aggregates scoped to the requesting principal.
type LocationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewLocationService constructs a LocationService.
func NewLocationService(db *gorm.DB) *LocationService {
	return &LocationService{DB: db}
}

// Create registers a new location owned by the principal. The name is
// required; address and phone are optional. The join URL for the printed QR
// code is derived from the generated location ID.
func (s *LocationService) Create(ctx context.Context, p Principal, name, address, phone string) (*domain.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("location name is required")
	}
	loc, err := repo.CreateLocation(ctx, s.DB, p.UserID, name, strings.TrimSpace(address), strings.TrimSpace(phone))
	if err != nil {
		return nil, storeErr(err)
	}
	return loc, nil
}

// List returns the principal's locations, or every location for admins.
func (s *LocationService) List(ctx context.Context, p Principal) ([]domain.Location, error) {
	var (
		out []domain.Location
		err error
	)
	if p.IsAdmin {
		out, err = repo.ListAllLocations(ctx, s.DB)
	} else {
		out, err = repo.ListLocations(ctx, s.DB, p.UserID)
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// SetActive toggles whether a location accepts new joins. Owner-scoped;
// a location the principal does not own reads as missing. Admins may toggle
// any location.
func (s *LocationService) SetActive(ctx context.Context, p Principal, locationID string, active bool) error {
	ownerID := p.UserID
	if p.IsAdmin {
		loc, err := repo.GetLocation(ctx, s.DB, locationID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLocationNotFound
		}
		if err != nil {
			return storeErr(err)
		}
		ownerID = loc.OwnerID
	}
	err := repo.SetLocationActive(ctx, s.DB, locationID, ownerID, active)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrLocationNotFound
	}
	if err != nil {
		return storeErr(err)
	}
	return nil
}

// Dashboard returns the queue counters for the principal's locations, or for
// every location when the principal is an admin.
func (s *LocationService) Dashboard(ctx context.Context, p Principal) (repo.DashboardStats, error) {
	ownerID := p.UserID
	if p.IsAdmin {
		ownerID = "" // all locations
	}
	stats, err := repo.QueueDashboard(ctx, s.DB, ownerID, time.Now().UTC())
	if err != nil {
		return repo.DashboardStats{}, storeErr(err)
	}
	return stats, nil
}
