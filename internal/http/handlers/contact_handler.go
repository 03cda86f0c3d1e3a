// Contact-form HTTP handlers.
//
// This file exposes the public intake endpoints:
//   - GET  /contact/form-token  (issue a one-time token stamped with serve time)
//   - POST /contact             (submit the form, rate limited per client)
//
// Submissions trapped by the honeypot are acknowledged with the same body as
// genuine ones so automated submitters cannot tell they were dropped.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prismhq/go-queue-backend/internal/http/middleware"
	"github.com/prismhq/go-queue-backend/internal/services"
)

// ContactRequest is the JSON payload for a contact-form submission.
//
// Website is the honeypot: the rendered form hides it, so any value is
// definitive bot proof.
type ContactRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=255"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	Message   string `json:"message" binding:"required,min=1,max=5000"`
	Website   string `json:"website"`
	FormToken string `json:"form_token"`
}

// contactAccepted is the uniform acknowledgement for every accepted
// submission, trapped or not.
var contactAccepted = gin.H{"message": "thank you, we received your message"}

// GetFormToken handles GET /contact/form-token.
//
// Clients fetch a token when rendering the form and echo it back on submit;
// the gap between the two timestamps feeds the timing signal of the bot
// scorer.
func (h *Handlers) GetFormToken(c *gin.Context) {
	t, err := h.contactSvc.FormToken(c.Request.Context())
	if err != nil {
		failUnexpected(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"form_token": t.Token})
}

// SubmitContact handles POST /contact.
func (h *Handlers) SubmitContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, email and message are required")
		return
	}

	_, masked, err := h.contactSvc.Submit(c.Request.Context(), services.SubmitInput{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Message:   req.Message,
		Honeypot:  req.Website,
		FormToken: req.FormToken,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	switch {
	case err == nil:
	case errors.Is(err, services.ErrRateLimited):
		middleware.CountContactSubmission("rate_limited")
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "too many submissions, try again later")
		return
	default:
		middleware.CountContactSubmission("error")
		failUnexpected(c, err)
		return
	}

	if masked {
		middleware.CountContactSubmission("masked")
	} else {
		middleware.CountContactSubmission("accepted")
	}
	ok(c, http.StatusCreated, contactAccepted)
}
