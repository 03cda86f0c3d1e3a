// Admin and staff HTTP handlers.
//
// Location management, dashboards, and contact-submission triage. All routes
// in this file sit behind bearer authentication; the submission triage
// endpoints additionally require the admin capability (enforced in the
// router).
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prismhq/go-queue-backend/internal/domain"
	"github.com/prismhq/go-queue-backend/internal/services"
)

//
// DTOs
//

// CreateLocationRequest is the JSON payload for registering a queue location.
type CreateLocationRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=255"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// SetLocationActiveRequest toggles a location's queue open or closed.
type SetLocationActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// UpdateSubmissionRequest is the JSON payload for triaging a contact
// submission. Absent fields are left untouched.
type UpdateSubmissionRequest struct {
	IsRead    *bool   `json:"is_read"`
	IsFlagged *bool   `json:"is_flagged"`
	Status    *string `json:"status"`
}

// ListSubmissionsResponse wraps a page of submissions and pagination
// information.
type ListSubmissionsResponse struct {
	Submissions []domain.ContactSubmission `json:"submissions"`
	Pagination  Pagination                 `json:"pagination"`
}

//
// Locations
//

// CreateLocation handles POST /locations.
func (h *Handlers) CreateLocation(c *gin.Context) {
	var req CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name is required")
		return
	}

	loc, err := h.locSvc.Create(c.Request.Context(), principal(c),
		strings.TrimSpace(req.Name),
		strings.TrimSpace(req.Address),
		strings.TrimSpace(req.Phone))
	if err != nil {
		failUnexpected(c, err)
		return
	}
	ok(c, http.StatusCreated, loc)
}

// ListLocations handles GET /locations. Staff see their own locations,
// admins see all of them.
func (h *Handlers) ListLocations(c *gin.Context) {
	locs, err := h.locSvc.List(c.Request.Context(), principal(c))
	if err != nil {
		failUnexpected(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"locations": locs, "total": len(locs)})
}

// SetLocationActive handles PUT /locations/:id/active.
func (h *Handlers) SetLocationActive(c *gin.Context) {
	locationID := c.Param("id")
	if _, err := uuid.Parse(locationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "location id must be a UUID")
		return
	}

	var req SetLocationActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "is_active is required")
		return
	}

	err := h.locSvc.SetActive(c.Request.Context(), principal(c), locationID, *req.IsActive)
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
	noContent(c)
}

//
// Dashboards
//

// QueueDashboard handles GET /dashboard/queues.
func (h *Handlers) QueueDashboard(c *gin.Context) {
	stats, err := h.locSvc.Dashboard(c.Request.Context(), principal(c))
	if err != nil {
		failUnexpected(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// ContactDashboard handles GET /dashboard/contact.
func (h *Handlers) ContactDashboard(c *gin.Context) {
	stats, err := h.contactSvc.SubmissionStats(c.Request.Context())
	if err != nil {
		failUnexpected(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

//
// Contact submission triage
//

// ListSubmissions handles GET /submissions (paginated, newest first,
// optional ?status= filter).
func (h *Handlers) ListSubmissions(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", domain.SubmissionNew, domain.SubmissionReview, domain.SubmissionFlagged:
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status filter")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.contactSvc.ListSubmissions(c.Request.Context(), status, page, pageSize)
	if err != nil {
		failUnexpected(c, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListSubmissionsResponse{
		Submissions: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// UpdateSubmission handles PATCH /submissions/:id.
func (h *Handlers) UpdateSubmission(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "submission id must be a UUID")
		return
	}

	var req UpdateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	sub, err := h.contactSvc.UpdateSubmission(c.Request.Context(), id, services.SubmissionPatch{
		IsRead:    req.IsRead,
		IsFlagged: req.IsFlagged,
		Status:    req.Status,
	})
	switch {
	case err == nil:
	case errors.Is(err, services.ErrSubmissionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "submission not found")
		return
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusBadRequest, ErrCodeInvalidTransition, "unknown submission status")
		return
	default:
		failUnexpected(c, err)
		return
	}
	ok(c, http.StatusOK, sub)
}

// DeleteSubmission handles DELETE /submissions/:id.
func (h *Handlers) DeleteSubmission(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "submission id must be a UUID")
		return
	}

	if err := h.contactSvc.DeleteSubmission(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrSubmissionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "submission not found")
			return
		}
		failUnexpected(c, err)
		return
	}
	noContent(c)
}
