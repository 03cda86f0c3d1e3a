package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	// IP fallback when no userID.
	key := KeyByUserOrIP()(c)
	if !strings.HasPrefix(key, "ip:") || !strings.Contains(key, "203.0.113.9") {
		t.Fatalf("expected ip-based key; got %q", key)
	}

	// Prefer userID when present.
	c.Set("userID", "u123")
	if key2 := KeyByUserOrIP()(c); key2 != "user:u123" {
		t.Fatalf("expected user-based key; got %q", key2)
	}
}

func TestNewEdgeRateLimiter_BurstCoercion_AndVisitorReuse(t *testing.T) {
	rl := NewEdgeRateLimiter(2.0, 0, KeyByUserOrIP()) // burst<=0 coerced to 1
	if rl.burst != 1 {
		t.Fatalf("burst coercion failed, got %d", rl.burst)
	}

	lim := rl.getVisitor("k1")
	if lim == nil {
		t.Fatalf("expected limiter")
	}
	if got := rl.getVisitor("k1"); got != lim {
		t.Fatalf("expected same limiter instance to be reused")
	}
}

func TestEdgeRateLimiter_getVisitor_GC(t *testing.T) {
	rl := NewEdgeRateLimiter(1.0, 1, KeyByUserOrIP())
	rl.ttl = 1 * time.Nanosecond

	// Seed an old visitor and force cleanup on the next lookup.
	rl.mu.Lock()
	rl.visitors["old"] = &visitor{
		limiter:  rate.NewLimiter(1, 1),
		lastSeen: time.Now().Add(-time.Hour),
	}
	rl.cleanupN = 4999
	rl.mu.Unlock()

	rl.getVisitor("fresh")

	rl.mu.Lock()
	_, oldKept := rl.visitors["old"]
	_, freshKept := rl.visitors["fresh"]
	rl.mu.Unlock()
	if oldKept {
		t.Fatalf("expected idle visitor to be evicted")
	}
	if !freshKept {
		t.Fatalf("expected fresh visitor to survive cleanup")
	}
}

func TestEdgeRateLimiter_Handler_AllowsThenRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Near-zero refill with burst 1: first request passes, second is rejected.
	rl := NewEdgeRateLimiter(0.0001, 1, KeyByUserOrIP())
	r := gin.New()
	r.Use(RequestID())
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = net.JoinHostPort("198.51.100.7", "40000")
		r.ServeHTTP(w, req)
		return w
	}

	if w := send(); w.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", w.Code)
	}

	w := send()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After header, got %q", w.Header().Get("Retry-After"))
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "too_many_requests" {
		t.Fatalf("expected code=too_many_requests, got %v", body["code"])
	}
	if rid, _ := body["request_id"].(string); rid == "" {
		t.Fatalf("expected request_id in rejection body")
	}
}

func TestEdgeRateLimiter_Handler_IndependentKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewEdgeRateLimiter(0.0001, 1, KeyByUserOrIP())
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = net.JoinHostPort(ip, "40000")
		r.ServeHTTP(w, req)
		return w.Code
	}

	if got := send("203.0.113.1"); got != http.StatusOK {
		t.Fatalf("ip1 first: expected 200, got %d", got)
	}
	if got := send("203.0.113.1"); got != http.StatusTooManyRequests {
		t.Fatalf("ip1 second: expected 429, got %d", got)
	}
	// A different client still has a full bucket.
	if got := send("203.0.113.2"); got != http.StatusOK {
		t.Fatalf("ip2 first: expected 200, got %d", got)
	}
}
