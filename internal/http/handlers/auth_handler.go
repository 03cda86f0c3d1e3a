// Authentication HTTP handlers.
//
//   - POST /auth/login  (exchange credentials for a bearer token)
//   - GET  /auth/me     (return the account behind the presented token)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prismhq/go-queue-backend/internal/domain"
	"github.com/prismhq/go-queue-backend/internal/services"
)

// LoginRequest is the JSON payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the signed bearer token and the account it belongs to.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

// Login handles POST /auth/login.
//
// Unknown usernames, wrong passwords, and disabled accounts all answer the
// same 401 so the endpoint does not leak which accounts exist.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password are required")
		return
	}

	token, user, err := h.authSvc.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid username or password")
			return
		}
		failUnexpected(c, err)
		return
	}
	ok(c, http.StatusOK, LoginResponse{AccessToken: token, TokenType: "bearer", User: user})
}

// Me handles GET /auth/me.
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.authSvc.Me(c.Request.Context(), principal(c))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "account disabled or removed")
			return
		}
		failUnexpected(c, err)
		return
	}
	ok(c, http.StatusOK, user)
}
