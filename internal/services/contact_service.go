// Package services – ContactService
//
// This file implements the ContactService, which governs contact-form intake:
// fingerprint-based rate limiting, one-time form tokens, bot scoring, decoy
// responses for honeypot hits, and the admin triage operations over stored
// submissions. Service-level errors (ErrRateLimited, ErrSubmissionNotFound)
// are returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/prismhq/go-queue-backend/internal/botscore"
	"github.com/prismhq/go-queue-backend/internal/cache"
	"github.com/prismhq/go-queue-backend/internal/domain"
	"github.com/prismhq/go-queue-backend/internal/ratelimit"
	"github.com/prismhq/go-queue-backend/internal/repo"
)

// ContactService implements the contact-form use cases. It is safe for
// concurrent use; rate-limit coordination happens in Redis and persistence
// in the relational store.
type ContactService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Cache stores one-time form tokens.
	Cache *cache.Store
	// Limiter gates submissions per client fingerprint.
	Limiter *ratelimit.FixedWindowLimiter

	// FormTokenTTL bounds how long an issued token stays redeemable.
	FormTokenTTL time.Duration
}

// NewContactService constructs a ContactService with the default ten-minute
// form token lifetime.
func NewContactService(db *gorm.DB, c *cache.Store, l *ratelimit.FixedWindowLimiter) *ContactService {
	return &ContactService{
		DB:           db,
		Cache:        c,
		Limiter:      l,
		FormTokenTTL: 10 * time.Minute,
	}
}

// FormToken issues a new one-time token the contact form embeds when it is
// served. Redeeming the token during submission recovers the form load time
// for the bot scorer's timing signal, and the token is consumed so it cannot
// validate a second submission.
func (s *ContactService) FormToken(ctx context.Context) (cache.FormToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return cache.FormToken{}, fmt.Errorf("contact: generate form token: %w", err)
	}
	t := cache.FormToken{
		Token:   base64.RawURLEncoding.EncodeToString(buf),
		Created: float64(time.Now().UnixNano()) / float64(time.Second),
	}
	if err := s.Cache.PutFormToken(ctx, t, s.FormTokenTTL); err != nil {
		return cache.FormToken{}, storeErr(err)
	}
	return t, nil
}

// SubmitInput carries one contact-form submission plus the request-derived
// signals the scorer needs.
type SubmitInput struct {
	Name      string
	Email     string
	Phone     string
	Message   string
	Honeypot  string // hidden field; any value is definitive bot proof
	FormToken string
	IPAddress string
	UserAgent string
}

// Submit processes one contact-form submission.
//
// Flow:
//  1. The client fingerprint (IP + hashed user agent) is charged one
//     admission; an exhausted window returns ErrRateLimited.
//  2. The form token, when present and unexpired, recovers the form load
//     time. A missing or expired token scores as an instantaneous
//     submission, which carries the full timing penalty.
//  3. The bot score routes the submission to new/review/flagged.
//  4. A non-empty honeypot returns masked=true with no persistence; the
//     handler must still answer with a normal success body so automated
//     submitters cannot detect the trap.
//  5. Otherwise the submission is persisted and the used token consumed.
func (s *ContactService) Submit(ctx context.Context, in SubmitInput) (sub *domain.ContactSubmission, masked bool, err error) {
	fp := ratelimit.Fingerprint(in.IPAddress, in.UserAgent)

	decision, err := s.Limiter.Admit(ctx, fp)
	if err != nil {
		return nil, false, storeErr(err)
	}
	if !decision.Allowed {
		return nil, false, ErrRateLimited
	}

	// Without a redeemable token the submission is scored as if the form
	// was submitted the instant it loaded.
	elapsed := 1.0
	if tok, ok, err := s.Cache.GetFormToken(ctx, in.FormToken); err == nil && ok {
		elapsed = float64(time.Now().UnixNano())/float64(time.Second) - tok.Created
	}

	score := botscore.Score(botscore.Input{
		Honeypot:       in.Honeypot,
		Message:        in.Message,
		UserAgent:      in.UserAgent,
		ElapsedSeconds: elapsed,
		RecentCount:    decision.Count,
	})

	if in.Honeypot != "" {
		// Decoy success, nothing stored.
		return nil, true, nil
	}

	status := botscore.Route(score)
	sub = &domain.ContactSubmission{
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Message:   in.Message,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Status:    status,
		IsFlagged: status == domain.SubmissionFlagged,
		BotScore:  score,
	}
	if sub, err = repo.CreateSubmission(ctx, s.DB, sub); err != nil {
		return nil, false, storeErr(err)
	}

	// Consume the token only after the submission is durable.
	_ = s.Cache.DeleteFormToken(ctx, in.FormToken)

	return sub, false, nil
}

// SubmissionPatch carries the admin triage changes applied to a submission.
// Nil fields are left untouched.
type SubmissionPatch struct {
	IsRead    *bool
	IsFlagged *bool
	Status    *string
}

// ListSubmissions returns a page of submissions ordered newest first,
// optionally filtered by status, together with the total count for
// pagination metadata.
func (s *ContactService) ListSubmissions(ctx context.Context, status string, page, pageSize int) ([]domain.ContactSubmission, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountSubmissions(ctx, s.DB, status)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	if total == 0 {
		return []domain.ContactSubmission{}, 0, nil
	}
	items, err := repo.ListSubmissionsPage(ctx, s.DB, status, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	return items, total, nil
}

// UpdateSubmission applies a triage patch to one submission. An unknown
// status value yields ErrInvalidTransition; a missing submission yields
// ErrSubmissionNotFound.
func (s *ContactService) UpdateSubmission(ctx context.Context, id string, patch SubmissionPatch) (*domain.ContactSubmission, error) {
	fields := map[string]any{}
	if patch.IsRead != nil {
		fields["is_read"] = *patch.IsRead
	}
	if patch.IsFlagged != nil {
		fields["is_flagged"] = *patch.IsFlagged
	}
	if patch.Status != nil {
		switch *patch.Status {
		case domain.SubmissionNew, domain.SubmissionReview, domain.SubmissionFlagged:
			fields["status"] = *patch.Status
		default:
			return nil, ErrInvalidTransition
		}
	}
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := repo.UpdateSubmission(ctx, s.DB, id, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSubmissionNotFound
			}
			return nil, storeErr(err)
		}
	}
	out, err := repo.GetSubmission(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, storeErr(err)
	}
	return out, nil
}

// DeleteSubmission removes a submission permanently.
func (s *ContactService) DeleteSubmission(ctx context.Context, id string) error {
	if err := repo.DeleteSubmission(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return storeErr(err)
	}
	return nil
}

// SubmissionStats returns the triage counters for the admin panel.
func (s *ContactService) SubmissionStats(ctx context.Context) (repo.SubmissionStats, error) {
	stats, err := repo.ContactDashboard(ctx, s.DB, time.Now().UTC())
	if err != nil {
		return repo.SubmissionStats{}, storeErr(err)
	}
	return stats, nil
}
