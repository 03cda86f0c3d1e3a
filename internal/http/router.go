// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/prismhq/go-queue-backend/internal/cache"
	"github.com/prismhq/go-queue-backend/internal/config"
	"github.com/prismhq/go-queue-backend/internal/http/handlers"
	"github.com/prismhq/go-queue-backend/internal/http/middleware"
	"github.com/prismhq/go-queue-backend/internal/ratelimit"
	"github.com/prismhq/go-queue-backend/internal/security"
	"github.com/prismhq/go-queue-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Edge rate limiter (per user/IP token bucket)
//  8. CORS and security headers, gzip
func RegisterRoutes(r *gin.Engine, db *gorm.DB, rdb redis.UniversalClient, cfg config.Config) error {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (customer phones, emails, tokens)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"Authorization",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewEdgeRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Compress JSON responses (queue listings and submission pages benefit most)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← stores/limiter/tokens
	tokens, err := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	store := cache.New(rdb)
	// Contact submissions and queue joins share the window policy but count
	// in separate keyspaces, so filling one quota does not consume the other.
	contactLimiter := ratelimit.NewFixedWindowLimiter(rdb, "rate_limit:contact", cfg.Contact.WindowLimit, cfg.Contact.Window)
	joinLimiter := ratelimit.NewFixedWindowLimiter(rdb, "rate_limit:join", cfg.Contact.WindowLimit, cfg.Contact.Window)

	queueSvc := services.NewQueueService(db, store)
	queueSvc.Limiter = joinLimiter
	queueSvc.WaitPerPerson = cfg.Queue.WaitPerPerson
	queueSvc.CacheTTL = cfg.Queue.CacheTTL

	contactSvc := services.NewContactService(db, store, contactLimiter)
	contactSvc.FormTokenTTL = cfg.Contact.FormTokenTTL

	locSvc := services.NewLocationService(db)
	authSvc := services.NewAuthService(db, tokens)

	h := handlers.New(queueSvc, contactSvc, locSvc, authSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Contact form (public)
		api.GET("/contact/form-token", h.GetFormToken)
		api.POST("/contact", h.SubmitContact)

		// Virtual queue (public)
		api.POST("/queues/join", h.JoinQueue)
		api.GET("/queues/track/:id", h.TrackEntry)

		// Authentication
		api.POST("/auth/login", h.Login)

		// Staff surface (bearer token required)
		authed := api.Group("", middleware.RequireAuth(tokens))
		{
			authed.GET("/auth/me", h.Me)

			authed.GET("/queues/location/:id", h.LocationQueue)
			authed.PUT("/queues/entry/:id/status", h.UpdateEntryStatus)

			authed.POST("/locations", h.CreateLocation)
			authed.GET("/locations", h.ListLocations)
			authed.PUT("/locations/:id/active", h.SetLocationActive)

			authed.GET("/dashboard/queues", h.QueueDashboard)

			// Admin-only triage surface
			admin := authed.Group("", middleware.RequireAdmin())
			{
				admin.GET("/dashboard/contact", h.ContactDashboard)
				admin.GET("/submissions", h.ListSubmissions)
				admin.PATCH("/submissions/:id", h.UpdateSubmission)
				admin.DELETE("/submissions/:id", h.DeleteSubmission)
			}
		}
	}

	return nil
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
