// Queue HTTP handlers.
//
// This file exposes REST endpoints for virtual queue resources:
//   - POST /queues/join               (customer joins a location's queue)
//   - GET  /queues/track/{id}         (customer checks their place in line)
//   - GET  /queues/location/{id}      (staff view of a location's live queue)
//   - PUT  /queues/entry/{id}/status  (staff advances an entry's lifecycle)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results (including sentinel errors) into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prismhq/go-queue-backend/internal/cache"
	"github.com/prismhq/go-queue-backend/internal/domain"
	"github.com/prismhq/go-queue-backend/internal/http/middleware"
	"github.com/prismhq/go-queue-backend/internal/repo"
	"github.com/prismhq/go-queue-backend/internal/services"
	"github.com/prismhq/go-queue-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// QueueService defines queue lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type QueueService interface {
	// Join places a customer in a location's queue and assigns a position.
	Join(ctx context.Context, in services.JoinInput) (*services.JoinResult, error)
	// Track returns the current position and status of an entry.
	Track(ctx context.Context, entryID string) (*services.TrackResult, error)
	// LocationQueue returns the active entries of a location in position order.
	LocationQueue(ctx context.Context, p services.Principal, locationID string) ([]domain.QueueEntry, error)
	// UpdateStatus moves an entry through its lifecycle.
	UpdateStatus(ctx context.Context, p services.Principal, entryID, newStatus string) (*domain.QueueEntry, error)
}

// ContactService defines contact-form operations consumed by HTTP handlers.
type ContactService interface {
	// FormToken issues a one-time token stamped with the form's serve time.
	FormToken(ctx context.Context) (cache.FormToken, error)
	// Submit processes one submission; masked=true means a silently dropped bot.
	Submit(ctx context.Context, in services.SubmitInput) (*domain.ContactSubmission, bool, error)
	// ListSubmissions returns a page of submissions plus the total count.
	ListSubmissions(ctx context.Context, status string, page, pageSize int) ([]domain.ContactSubmission, int64, error)
	// UpdateSubmission applies an admin triage patch.
	UpdateSubmission(ctx context.Context, id string, patch services.SubmissionPatch) (*domain.ContactSubmission, error)
	// DeleteSubmission removes a submission permanently.
	DeleteSubmission(ctx context.Context, id string) error
	// SubmissionStats returns the triage counters for the admin panel.
	SubmissionStats(ctx context.Context) (repo.SubmissionStats, error)
}

// LocationService defines location management operations consumed by HTTP
// handlers.
type LocationService interface {
	// Create registers a new queue location owned by the principal.
	Create(ctx context.Context, p services.Principal, name, address, phone string) (*domain.Location, error)
	// List returns the principal's locations (all locations for admins).
	List(ctx context.Context, p services.Principal) ([]domain.Location, error)
	// SetActive opens or closes a location's queue.
	SetActive(ctx context.Context, p services.Principal, locationID string, active bool) error
	// Dashboard returns the aggregate queue counters for the principal.
	Dashboard(ctx context.Context, p services.Principal) (repo.DashboardStats, error)
}

// AuthService defines authentication operations consumed by HTTP handlers.
type AuthService interface {
	// Login verifies credentials and returns a signed access token.
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	// Me returns the account behind a principal.
	Me(ctx context.Context, p services.Principal) (*domain.User, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for queues, contact forms, locations, and
// authentication. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	queueSvc   QueueService
	contactSvc ContactService
	locSvc     LocationService
	authSvc    AuthService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(queueSvc QueueService, contactSvc ContactService, locSvc LocationService, authSvc AuthService) *Handlers {
	return &Handlers{queueSvc: queueSvc, contactSvc: contactSvc, locSvc: locSvc, authSvc: authSvc}
}

// principal builds the service-layer principal from the identity the auth
// middleware stored in the Gin context.
func principal(c *gin.Context) services.Principal {
	return services.Principal{
		UserID:  middleware.UserID(c),
		IsAdmin: middleware.IsAdmin(c),
	}
}

//
// DTOs
//

// JoinQueueRequest is the JSON payload for joining a location's queue.
type JoinQueueRequest struct {
	LocationID    string `json:"location_id" binding:"required"`
	CustomerName  string `json:"customer_name" binding:"required,min=1,max=255"`
	CustomerPhone string `json:"customer_phone" binding:"required,min=3,max=32"`
}

// JoinQueueResponse echoes the assigned position back to the customer.
type JoinQueueResponse struct {
	ID                string `json:"id"`
	Position          int    `json:"position"`
	EstimatedWaitTime int    `json:"estimated_wait_time"`
	TrackingURL       string `json:"tracking_url"`
}

// UpdateEntryStatusRequest is the JSON payload for advancing an entry.
type UpdateEntryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	if page = utils.AtoiDefault(c.Query("page"), defaultPage); page < 1 {
		page = 1
	}
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

//
// Handlers
//

// JoinQueue handles POST /queues/join.
//
// Joins are gated by the same per-fingerprint window as contact submissions;
// an exhausted window answers 429. The location must exist and be open, and a
// phone number with an active entry at the same location is rejected with 400
// so a customer cannot hold two spots.
func (h *Handlers) JoinQueue(c *gin.Context) {
	var req JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "location_id, customer_name and customer_phone are required")
		return
	}
	if _, err := uuid.Parse(req.LocationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "location_id must be a UUID")
		return
	}

	res, err := h.queueSvc.Join(c.Request.Context(), services.JoinInput{
		LocationID:    req.LocationID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		IPAddress:     c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
	})
	switch {
	case err == nil:
	case errors.Is(err, services.ErrRateLimited):
		middleware.CountQueueJoin("rate_limited")
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "too many join attempts, try again later")
		return
	case errors.Is(err, services.ErrLocationNotFound):
		middleware.CountQueueJoin("rejected")
		fail(c, http.StatusNotFound, ErrCodeNotFound, "location not found or closed")
		return
	case errors.Is(err, services.ErrAlreadyQueued):
		middleware.CountQueueJoin("duplicate")
		fail(c, http.StatusBadRequest, ErrCodeAlreadyQueued, "phone number already has an active entry in this queue")
		return
	default:
		middleware.CountQueueJoin("error")
		failUnexpected(c, err)
		return
	}

	middleware.CountQueueJoin("joined")
	ok(c, http.StatusCreated, JoinQueueResponse{
		ID:                res.Entry.ID,
		Position:          res.Position,
		EstimatedWaitTime: res.EstimatedWaitTime,
		TrackingURL:       res.TrackingURL,
	})
}

// TrackEntry handles GET /queues/track/:id.
//
// Public: the entry id is an unguessable UUID and acts as the capability.
func (h *Handlers) TrackEntry(c *gin.Context) {
	entryID := c.Param("id")
	if _, err := uuid.Parse(entryID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "entry id must be a UUID")
		return
	}

	res, err := h.queueSvc.Track(c.Request.Context(), entryID)
	if err != nil {
		if errors.Is(err, services.ErrEntryNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "queue entry not found")
			return
		}
		failUnexpected(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// LocationQueue handles GET /queues/location/:id.
//
// Requires authentication; only the location owner or an admin may see the
// full queue with customer names and phone numbers.
func (h *Handlers) LocationQueue(c *gin.Context) {
	locationID := c.Param("id")
	if _, err := uuid.Parse(locationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "location id must be a UUID")
		return
	}

	entries, err := h.queueSvc.LocationQueue(c.Request.Context(), principal(c), locationID)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrLocationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "location not found")
		return
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not the owner of this location")
		return
	default:
		failUnexpected(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"location_id": locationID, "entries": entries, "total": len(entries)})
}

// UpdateEntryStatus handles PUT /queues/entry/:id/status.
//
// Legal moves are waiting→notified, notified→completed, and any active
// state→cancelled; everything else is rejected with 400.
func (h *Handlers) UpdateEntryStatus(c *gin.Context) {
	entryID := c.Param("id")
	if _, err := uuid.Parse(entryID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "entry id must be a UUID")
		return
	}

	var req UpdateEntryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status is required")
		return
	}

	entry, err := h.queueSvc.UpdateStatus(c.Request.Context(), principal(c), entryID, strings.TrimSpace(req.Status))
	switch {
	case err == nil:
	case errors.Is(err, services.ErrEntryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "queue entry not found")
		return
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not the owner of this location")
		return
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusBadRequest, ErrCodeInvalidTransition, "illegal status transition")
		return
	default:
		failUnexpected(c, err)
		return
	}
	ok(c, http.StatusOK, entry)
}
