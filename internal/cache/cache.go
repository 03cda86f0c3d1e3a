// Package cache provides the Redis-backed fast-path mirror of queue entries
// and the one-time contact form token store.
//
// The entry mirror is a short-TTL, advisory copy of authoritative rows in the
// relational store: any worker may refresh it after a successful DB write,
// reads may prefer it for latency, and it must never be treated as a source
// of truth (the queue service cross-checks the store before returning cached
// state). Cache failures are reported to the caller, who decides whether the
// operation can proceed without the mirror.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes in the shared Redis database.
const (
	entryPrefix     = "queue_entry:"
	formTokenPrefix = "form_token:"
)

// EntryMirror is the cached projection of one queue entry.
type EntryMirror struct {
	ID         string `json:"id"`
	Position   int    `json:"position"`
	Status     string `json:"status"`
	LocationID string `json:"location_id"`
}

// FormToken is the payload stored behind a one-time contact form token.
type FormToken struct {
	Token   string  `json:"token"`
	Created float64 `json:"created"` // unix seconds when the form was served
}

// Store wraps the Redis client with the application's cache operations.
type Store struct {
	client redis.UniversalClient
}

// New constructs a Store over the given Redis client.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// PutEntry writes (or refreshes) the mirror for a queue entry with the given
// TTL. Called after every successful store write so the mirror tracks the
// authoritative row; the TTL restarts on each refresh.
func (s *Store) PutEntry(ctx context.Context, e EntryMirror, ttl time.Duration) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: marshal entry %s: %w", e.ID, err)
	}
	if err := s.client.Set(ctx, entryPrefix+e.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache: put entry %s: %w", e.ID, err)
	}
	return nil
}

// GetEntry returns the mirrored entry and ok=true on a cache hit. A miss
// (expired or never written) is not an error.
func (s *Store) GetEntry(ctx context.Context, id string) (EntryMirror, bool, error) {
	raw, err := s.client.Get(ctx, entryPrefix+id).Bytes()
	if err == redis.Nil {
		return EntryMirror{}, false, nil
	}
	if err != nil {
		return EntryMirror{}, false, fmt.Errorf("cache: get entry %s: %w", id, err)
	}
	var e EntryMirror
	if err := json.Unmarshal(raw, &e); err != nil {
		// A corrupt mirror is treated as a miss; the store remains authoritative.
		return EntryMirror{}, false, nil
	}
	return e, true, nil
}

// PutFormToken stores a freshly issued one-time form token with the given TTL.
func (s *Store) PutFormToken(ctx context.Context, t FormToken, ttl time.Duration) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("cache: marshal form token: %w", err)
	}
	if err := s.client.Set(ctx, formTokenPrefix+t.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache: put form token: %w", err)
	}
	return nil
}

// GetFormToken returns the token payload and ok=true when the token exists
// and has not expired. The token is left in place; use DeleteFormToken once
// the submission it guarded has been accepted.
func (s *Store) GetFormToken(ctx context.Context, token string) (FormToken, bool, error) {
	if token == "" {
		return FormToken{}, false, nil
	}
	raw, err := s.client.Get(ctx, formTokenPrefix+token).Bytes()
	if err == redis.Nil {
		return FormToken{}, false, nil
	}
	if err != nil {
		return FormToken{}, false, fmt.Errorf("cache: get form token: %w", err)
	}
	var t FormToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return FormToken{}, false, nil
	}
	return t, true, nil
}

// DeleteFormToken consumes a token after use so it cannot validate a second
// submission. Deleting an absent token is not an error.
func (s *Store) DeleteFormToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, formTokenPrefix+token).Err(); err != nil {
		return fmt.Errorf("cache: delete form token: %w", err)
	}
	return nil
}
