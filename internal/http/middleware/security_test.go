package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func secEngine(opt SecurityOptions, pre gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if pre != nil {
		r.Use(pre)
	}
	r.Use(SecurityHeaders(opt))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	r := secEngine(SecurityOptions{}, func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-123")
		c.Next()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" ||
		h.Get("X-Frame-Options") != "DENY" ||
		h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %#v", h)
	}
	// Optional headers stay off by default.
	if h.Get("Permissions-Policy") != "" || h.Get("Cache-Control") != "" ||
		h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("unexpected optional headers: %#v", h)
	}
	if h.Get("Access-Control-Expose-Headers") != "X-Request-ID" {
		t.Fatalf("expected request ID exposed, got %q", h.Get("Access-Control-Expose-Headers"))
	}
}

func TestSecurityHeaders_ExposeHeaderMerge(t *testing.T) {
	t.Run("append to existing list", func(t *testing.T) {
		r := secEngine(SecurityOptions{}, func(c *gin.Context) {
			c.Header("X-Request-ID", "rid-abc")
			c.Header("Access-Control-Expose-Headers", "Foo")
			c.Next()
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if got := w.Header().Get("Access-Control-Expose-Headers"); got != "Foo, X-Request-ID" {
			t.Fatalf("expected 'Foo, X-Request-ID', got %q", got)
		}
	})

	t.Run("no duplicate entry", func(t *testing.T) {
		r := secEngine(SecurityOptions{}, func(c *gin.Context) {
			c.Header("X-Request-ID", "rid-abc")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, Foo")
			c.Next()
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		got := w.Header().Get("Access-Control-Expose-Headers")
		if strings.Count(got, "X-Request-ID") != 1 {
			t.Fatalf("duplicated request ID in %q", got)
		}
	})
}

func TestSecurityHeaders_OptionalPolicies(t *testing.T) {
	r := secEngine(SecurityOptions{NoStore: true, EnablePolicy: true}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	h := w.Header()
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Fatalf("cache headers missing: %#v", h)
	}
	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %#v", h)
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour}

	t.Run("plain HTTP never gets HSTS", func(t *testing.T) {
		r := secEngine(opt, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if w.Header().Get("Strict-Transport-Security") != "" {
			t.Fatalf("unexpected HSTS on plain HTTP")
		}
	})

	t.Run("direct TLS", func(t *testing.T) {
		r := secEngine(opt, nil)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "https://example.test/ok", nil)
		req.TLS = &tls.ConnectionState{}
		r.ServeHTTP(w, req)
		got := w.Header().Get("Strict-Transport-Security")
		if !strings.HasPrefix(got, "max-age=86400") {
			t.Fatalf("expected HSTS with configured max-age, got %q", got)
		}
	})

	t.Run("terminated TLS via X-Forwarded-Proto", func(t *testing.T) {
		r := secEngine(opt, nil)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-Forwarded-Proto", "HTTPS")
		r.ServeHTTP(w, req)
		if w.Header().Get("Strict-Transport-Security") == "" {
			t.Fatalf("expected HSTS behind proxy")
		}
	})

	t.Run("default max-age when unset", func(t *testing.T) {
		r := secEngine(SecurityOptions{EnableHSTS: true}, nil)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		r.ServeHTTP(w, req)
		got := w.Header().Get("Strict-Transport-Security")
		if !strings.HasPrefix(got, "max-age=15552000") { // 180 days
			t.Fatalf("expected default max-age, got %q", got)
		}
	})
}
