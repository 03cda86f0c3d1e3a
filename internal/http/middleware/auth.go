// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. RequireAuth verifies the
// Authorization header against the token manager and stores the principal's
// identity in the Gin context under "userID" and "isAdmin"; RequireAdmin
// additionally rejects non-admin principals. The middleware only establishes
// identity — ownership checks against specific locations stay in the service
// layer.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prismhq/go-queue-backend/internal/security"
)

// Context keys under which the authenticated principal is stored.
const (
	ctxKeyUserID  = "userID"
	ctxKeyIsAdmin = "isAdmin"
)

// TokenVerifier is the subset of the token manager the middleware needs.
type TokenVerifier interface {
	Parse(raw string) (*security.Claims, error)
}

// RequireAuth returns a middleware that rejects requests without a valid
// bearer token (401) and otherwise stores the principal in the context.
func RequireAuth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set(ctxKeyUserID, claims.Subject)
		c.Set(ctxKeyIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// RequireAdmin returns a middleware that rejects authenticated non-admin
// principals with 403. Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "forbidden",
				"message":    "admin access required",
			})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user ID from the context, or "".
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// IsAdmin reports whether the authenticated principal holds the admin
// capability.
func IsAdmin(c *gin.Context) bool {
	if v, ok := c.Get(ctxKeyIsAdmin); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value, returning "" when the scheme is absent or different.
func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
