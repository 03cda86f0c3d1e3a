// Package services – QueueService
//
// This file implements the QueueService, which owns the two non-trivial
// pieces of the virtual queue: position allocation and the entry lifecycle
// state machine. Position computation and entry insertion run inside one
// database transaction so that two concurrent joins at the same location can
// never be handed the same position, and positions follow the commit order of
// their transactions. After every successful store write the entry is
// mirrored into the Redis fast-path cache; the mirror is advisory and reads
// always cross-check the authoritative store.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/prismhq/go-queue-backend/internal/cache"
	"github.com/prismhq/go-queue-backend/internal/domain"
	"github.com/prismhq/go-queue-backend/internal/ratelimit"
	"github.com/prismhq/go-queue-backend/internal/repo"
)

// Principal is the authenticated identity supplied by the auth middleware.
// The service trusts its authenticity entirely; verifying the bearer token
// is the transport layer's job.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// QueueService implements queue joins, tracking, owner listings, and status
// transitions. It is safe for concurrent use; all cross-request ordering is
// delegated to store transactions.
type QueueService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Cache is the fast-path mirror of entry state.
	Cache *cache.Store
	// Limiter gates joins per client fingerprint, so one origin cannot fill
	// a queue with ghost entries. Nil disables the gate.
	Limiter *ratelimit.FixedWindowLimiter

	// WaitPerPerson is the estimated service time per position ahead.
	WaitPerPerson time.Duration
	// CacheTTL bounds the lifetime of each mirror write.
	CacheTTL time.Duration
}

// NewQueueService constructs a QueueService with the default five-minute
// per-person wait estimate and one-hour mirror TTL.
func NewQueueService(db *gorm.DB, c *cache.Store) *QueueService {
	return &QueueService{
		DB:            db,
		Cache:         c,
		WaitPerPerson: 5 * time.Minute,
		CacheTTL:      time.Hour,
	}
}

// JoinInput carries one join request plus the request-derived signals the
// fingerprint limiter keys on.
type JoinInput struct {
	LocationID    string
	CustomerName  string
	CustomerPhone string
	IPAddress     string
	UserAgent     string
}

// JoinResult is the outcome of a successful queue join.
type JoinResult struct {
	Entry             *domain.QueueEntry
	Position          int
	EstimatedWaitTime int // minutes
	TrackingURL       string
}

// Join places a customer in a location's queue.
//
// Preconditions:
//   - The client fingerprint (IP + hashed user agent) must have admissions
//     left in its window; otherwise ErrRateLimited. Like contact
//     submissions, the admission is charged up front, so a join that later
//     fails the duplicate or location checks still consumed one.
//   - The location must exist and be active; otherwise ErrLocationNotFound.
//   - The customer phone must not already hold a waiting/notified entry at
//     this location; otherwise ErrAlreadyQueued.
//
// Concurrency & atomicity:
//   - The active-entry count, the duplicate check, and the insert run in a
//     single transaction. Position = 1 + count(active) is therefore unique
//     per location, and a join that cannot commit leaves no partial entry.
//
// Side effects:
//   - On success the entry is mirrored into the fast-path cache with the
//     configured TTL. A cache failure does not fail the join; the store
//     remains authoritative.
func (s *QueueService) Join(ctx context.Context, in JoinInput) (*JoinResult, error) {
	if s.Limiter != nil {
		fp := ratelimit.Fingerprint(in.IPAddress, in.UserAgent)
		decision, err := s.Limiter.Admit(ctx, fp)
		if err != nil {
			return nil, storeErr(err)
		}
		if !decision.Allowed {
			return nil, ErrRateLimited
		}
	}

	var entry *domain.QueueEntry

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loc, err := repo.GetLocation(ctx, tx, in.LocationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLocationNotFound
			}
			return storeErr(err)
		}
		if !loc.IsActive {
			return ErrLocationNotFound
		}

		if _, err := repo.FindActiveEntryByPhone(ctx, tx, in.LocationID, in.CustomerPhone); err == nil {
			return ErrAlreadyQueued
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return storeErr(err)
		}

		count, err := repo.CountActiveEntries(ctx, tx, in.LocationID)
		if err != nil {
			return storeErr(err)
		}
		position := int(count) + 1

		entry, err = repo.CreateEntry(ctx, tx, in.LocationID, in.CustomerName, in.CustomerPhone,
			position, position*s.waitPerPersonMinutes())
		if err != nil {
			return storeErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mirror(ctx, entry)

	return &JoinResult{
		Entry:             entry,
		Position:          entry.Position,
		EstimatedWaitTime: entry.EstimatedWaitTime,
		TrackingURL:       "/track/" + entry.ID,
	}, nil
}

// TrackResult is the public view of one entry's place in line.
type TrackResult struct {
	ID                string `json:"id"`
	Position          int    `json:"position"`
	Status            string `json:"status"`
	EstimatedWaitTime int    `json:"estimated_wait_time"`
	LocationName      string `json:"location_name"`
}

// Track returns the current position and status of an entry. The fast-path
// cache is consulted first, but an entry absent from the authoritative store
// is never returned even when a mirror for it still exists: a cache hit is
// only served after confirming the row exists. On a cache miss the store is
// read in full and the mirror refreshed.
func (s *QueueService) Track(ctx context.Context, entryID string) (*TrackResult, error) {
	if s.Cache != nil {
		if m, hit, err := s.Cache.GetEntry(ctx, entryID); err == nil && hit {
			exists, err := repo.EntryExists(ctx, s.DB, entryID)
			if err != nil {
				return nil, storeErr(err)
			}
			if !exists {
				return nil, ErrEntryNotFound
			}
			name, err := s.locationName(ctx, m.LocationID)
			if err != nil {
				return nil, err
			}
			return &TrackResult{
				ID:                m.ID,
				Position:          m.Position,
				Status:            m.Status,
				EstimatedWaitTime: m.Position * s.waitPerPersonMinutes(),
				LocationName:      name,
			}, nil
		}
	}

	entry, err := repo.GetEntry(ctx, s.DB, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, storeErr(err)
	}
	name, err := s.locationName(ctx, entry.LocationID)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, entry)
	return &TrackResult{
		ID:                entry.ID,
		Position:          entry.Position,
		Status:            entry.Status,
		EstimatedWaitTime: entry.EstimatedWaitTime,
		LocationName:      name,
	}, nil
}

// locationName resolves a location's display name; a vanished location reads
// as an empty name rather than an error so tracking keeps working.
func (s *QueueService) locationName(ctx context.Context, locationID string) (string, error) {
	loc, err := repo.GetLocation(ctx, s.DB, locationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", storeErr(err)
	}
	return loc.Name, nil
}

// LocationQueue returns the active (waiting/notified) entries at a location
// ordered by position. The requester must own the location or be an admin.
func (s *QueueService) LocationQueue(ctx context.Context, p Principal, locationID string) ([]domain.QueueEntry, error) {
	loc, err := repo.GetLocation(ctx, s.DB, locationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, storeErr(err)
	}
	if loc.OwnerID != p.UserID && !p.IsAdmin {
		return nil, ErrUnauthorized
	}
	entries, err := repo.ListActiveEntries(ctx, s.DB, locationID)
	if err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}

// UpdateStatus applies one lifecycle transition to an entry.
//
// The lifecycle is strictly forward:
//
//	waiting  → notified | completed | cancelled
//	notified → completed | cancelled
//
// completed and cancelled are terminal; any other source/target pair yields
// ErrInvalidTransition. notified sets notified_at, completed sets
// completed_at. The requester must own the entry's location or be an admin.
//
// When an entry leaves the active set (completed or cancelled), every active
// entry behind it is moved up one position and its wait estimate recomputed,
// in the same transaction as the departure, so the "next up" display never
// shows gaps.
func (s *QueueService) UpdateStatus(ctx context.Context, p Principal, entryID, newStatus string) (*domain.QueueEntry, error) {
	var updated *domain.QueueEntry

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := repo.GetEntry(ctx, tx, entryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return storeErr(err)
		}

		loc, err := repo.GetLocation(ctx, tx, entry.LocationID)
		if err != nil {
			return storeErr(err)
		}
		if loc.OwnerID != p.UserID && !p.IsAdmin {
			return ErrUnauthorized
		}

		if !validTransition(entry.Status, newStatus) {
			return ErrInvalidTransition
		}

		now := time.Now().UTC()
		fields := map[string]any{"status": newStatus, "updated_at": now}
		switch newStatus {
		case domain.StatusNotified:
			fields["notified_at"] = now
		case domain.StatusCompleted:
			fields["completed_at"] = now
		}
		if err := repo.UpdateEntryStatus(ctx, tx, entryID, fields); err != nil {
			return storeErr(err)
		}

		// Departure from the active set compacts the line behind it.
		if newStatus == domain.StatusCompleted || newStatus == domain.StatusCancelled {
			if err := repo.ShiftPositionsAfter(ctx, tx, entry.LocationID, entry.Position, s.waitPerPersonMinutes()); err != nil {
				return storeErr(err)
			}
		}

		updated, err = repo.GetEntry(ctx, tx, entryID)
		if err != nil {
			return storeErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mirror(ctx, updated)
	return updated, nil
}

// validTransition reports whether from → to is a permitted lifecycle step.
func validTransition(from, to string) bool {
	switch from {
	case domain.StatusWaiting:
		return to == domain.StatusNotified || to == domain.StatusCompleted || to == domain.StatusCancelled
	case domain.StatusNotified:
		return to == domain.StatusCompleted || to == domain.StatusCancelled
	default:
		// completed and cancelled are terminal
		return false
	}
}

// mirror refreshes the fast-path cache for an entry. Best effort: the store
// is authoritative, so a cache write failure is swallowed here and surfaces
// only as slower tracking reads.
func (s *QueueService) mirror(ctx context.Context, e *domain.QueueEntry) {
	if s.Cache == nil || e == nil {
		return
	}
	_ = s.Cache.PutEntry(ctx, cache.EntryMirror{
		ID:         e.ID,
		Position:   e.Position,
		Status:     e.Status,
		LocationID: e.LocationID,
	}, s.CacheTTL)
}

func (s *QueueService) waitPerPersonMinutes() int {
	m := int(s.WaitPerPerson / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}

// storeErr tags an infrastructure failure so callers can tell "the store said
// no" from "the record is absent" while keeping the cause in the chain.
func storeErr(err error) error {
	return errors.Join(ErrStoreUnavailable, err)
}
