// Fixed-window Redis limiter.
//
// The window is a counter with an absolute expiry set on its first increment:
// the first request in a window creates the counter with TTL = window, later
// requests within the TTL increment it, and Redis garbage-collects the key at
// expiry. A burst can therefore straddle a window boundary ("fixed window"
// semantics, not a true sliding window); that is a documented property of the
// scheme, not something this implementation tries to correct.
//
// The check-and-increment runs as a single Lua script so that two concurrent
// requests for the same fingerprint can never both observe the pre-increment
// count (a read-then-write split across round trips would under-count).
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript atomically applies fixed-window admission for one key.
//
// KEYS[1] = counter key
// ARGV[1] = limit (max admissions per window)
// ARGV[2] = window in seconds
//
// Returns {allowed(0|1), count, ttl_seconds}. Denied requests do not bump the
// counter, so the count always equals the number of admissions in the window.
var fixedWindowScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= limit then
  local ttl = redis.call("TTL", KEYS[1])
  if ttl < 0 then
    ttl = window
  end
  return {0, current, ttl}
end

local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("EXPIRE", KEYS[1], window)
  return {1, count, window}
end

local ttl = redis.call("TTL", KEYS[1])
if ttl < 0 then
  ttl = window
end
return {1, count, ttl}
`)

// Decision is the outcome of one admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// Count is the number of admissions recorded in the current window,
	// including this one when Allowed.
	Count int
	// Remaining is how many further admissions the window permits.
	Remaining int
	// RetryAfter is the time until the window expires; meaningful when the
	// request was denied.
	RetryAfter time.Duration
}

// FixedWindowLimiter counts admissions per key in Redis using fixed-window
// semantics. It is safe for concurrent use; all cross-process coordination is
// delegated to the atomic script above.
type FixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewFixedWindowLimiter constructs a limiter admitting at most limit requests
// per window for each key. Keys are namespaced under prefix (default
// "rate_limit").
func NewFixedWindowLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *FixedWindowLimiter {
	if prefix == "" {
		prefix = "rate_limit"
	}
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Hour
	}
	return &FixedWindowLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Admit checks and records one request for key. It returns a Decision, or an
// error when Redis is unreachable. Infrastructure errors are surfaced to the
// caller without retrying: a blind retry here could double-count an admission.
func (l *FixedWindowLimiter) Admit(ctx context.Context, key string) (Decision, error) {
	if l.client == nil {
		return Decision{}, fmt.Errorf("ratelimit: redis client is nil")
	}
	if key == "" {
		key = "unknown"
	}
	windowSec := int(l.window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}

	raw, err := fixedWindowScript.Run(ctx, l.client, []string{l.key(key)}, l.limit, windowSec).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: admit %q: %w", key, err)
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script response %T", raw)
	}

	allowed, err := redisInt(values[0])
	if err != nil {
		return Decision{}, err
	}
	count, err := redisInt(values[1])
	if err != nil {
		return Decision{}, err
	}
	ttlSec, err := redisInt(values[2])
	if err != nil {
		return Decision{}, err
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    allowed == 1,
		Count:      int(count),
		Remaining:  remaining,
		RetryAfter: time.Duration(ttlSec) * time.Second,
	}, nil
}

// peek returns the number of admissions recorded for key in the current
// window without consuming one. A missing counter reads as zero.
func (l *FixedWindowLimiter) peek(ctx context.Context, key string) (int, error) {
	if l.client == nil {
		return 0, fmt.Errorf("ratelimit: redis client is nil")
	}
	val, err := l.client.Get(ctx, l.key(key)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ratelimit: peek %q: %w", key, err)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("ratelimit: counter %q is not numeric: %w", key, err)
	}
	return n, nil
}

func (l *FixedWindowLimiter) key(k string) string { return l.prefix + ":" + k }

// redisInt normalizes the numeric types a Lua script result may decode to.
func redisInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ratelimit: unexpected string response %q", n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("ratelimit: unexpected response type %T", v)
	}
}
