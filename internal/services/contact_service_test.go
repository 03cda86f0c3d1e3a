package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/gorm"

	"github.com/prismhq/go-queue-backend/internal/domain"
	"github.com/prismhq/go-queue-backend/internal/ratelimit"
	"github.com/prismhq/go-queue-backend/internal/repo"
)

func newContactService(t *testing.T, limit int, window time.Duration) (*ContactService, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()
	db := newServiceDB(t)
	store, mr, client := newTestCache(t)
	limiter := ratelimit.NewFixedWindowLimiter(client, "rate_limit", limit, window)
	return NewContactService(db, store, limiter), db, mr
}

func humanSubmit() SubmitInput {
	return SubmitInput{
		Name:      "Visitor",
		Email:     "visitor@example.com",
		Message:   "Hello, when do you open tomorrow?",
		IPAddress: "203.0.113.9",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
	}
}

func TestSubmit_PersistsWithScoreAndRoute(t *testing.T) {
	svc, db, _ := newContactService(t, 3, time.Hour)
	ctx := context.Background()

	sub, masked, err := svc.Submit(ctx, humanSubmit())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if masked {
		t.Fatalf("genuine submission must not be masked")
	}
	if sub == nil || sub.ID == "" {
		t.Fatalf("submission not persisted: %+v", sub)
	}
	// Tokenless submissions carry the instant-submit penalty.
	if sub.BotScore != 50 {
		t.Fatalf("tokenless human: score %d", sub.BotScore)
	}
	if sub.Status != domain.SubmissionReview || sub.IsFlagged {
		t.Fatalf("score 50 routes to review: %+v", sub)
	}

	stored, err := repo.GetSubmission(ctx, db, sub.ID)
	if err != nil || stored.Email != "visitor@example.com" {
		t.Fatalf("stored row: %v %+v", err, stored)
	}
}

func TestSubmit_RedeemedTokenRecoversTiming(t *testing.T) {
	svc, _, mr := newContactService(t, 3, time.Hour)
	ctx := context.Background()

	tok, err := svc.FormToken(ctx)
	if err != nil {
		t.Fatalf("form token: %v", err)
	}
	// Make the form "loaded a while ago" so the timing penalty clears.
	mr.FastForward(30 * time.Second)
	tok.Created -= 30 // miniredis time moves, wall clock does not; age the stamp instead
	if err := svc.Cache.PutFormToken(ctx, tok, svc.FormTokenTTL); err != nil {
		t.Fatalf("reseed token: %v", err)
	}

	in := humanSubmit()
	in.FormToken = tok.Token
	sub, masked, err := svc.Submit(ctx, in)
	if err != nil || masked {
		t.Fatalf("submit: masked=%v err=%v", masked, err)
	}
	if sub.BotScore != 0 {
		t.Fatalf("aged token must clear the timing penalty, score %d", sub.BotScore)
	}
	if sub.Status != domain.SubmissionNew {
		t.Fatalf("clean submission routes to new, got %q", sub.Status)
	}

	// The token is consumed with the accepted submission.
	if _, hit, _ := svc.Cache.GetFormToken(ctx, tok.Token); hit {
		t.Fatalf("token must be single-use")
	}
}

func TestSubmit_HoneypotMaskedAndNotPersisted(t *testing.T) {
	svc, db, _ := newContactService(t, 3, time.Hour)
	ctx := context.Background()

	in := humanSubmit()
	in.Honeypot = "https://spam.example"
	sub, masked, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("honeypot submit must not error: %v", err)
	}
	if !masked || sub != nil {
		t.Fatalf("honeypot must be masked with no row: masked=%v sub=%+v", masked, sub)
	}

	n, err := repo.CountSubmissions(ctx, db, "")
	if err != nil || n != 0 {
		t.Fatalf("nothing may be stored: n=%d err=%v", n, err)
	}
}

func TestSubmit_RateLimitPerFingerprint(t *testing.T) {
	svc, _, _ := newContactService(t, 3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Submit(ctx, humanSubmit()); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if _, _, err := svc.Submit(ctx, humanSubmit()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("4th submission in window: %v", err)
	}

	// A different client keeps its own window.
	other := humanSubmit()
	other.IPAddress = "198.51.100.7"
	if _, _, err := svc.Submit(ctx, other); err != nil {
		t.Fatalf("other fingerprint: %v", err)
	}
}

func TestSubmit_WindowExpiryReopens(t *testing.T) {
	svc, _, mr := newContactService(t, 1, time.Minute)
	ctx := context.Background()

	if _, _, err := svc.Submit(ctx, humanSubmit()); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, _, err := svc.Submit(ctx, humanSubmit()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second in window: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, _, err := svc.Submit(ctx, humanSubmit()); err != nil {
		t.Fatalf("after window expiry: %v", err)
	}
}

func TestSubmit_RepeatClientRaisesScore(t *testing.T) {
	svc, _, _ := newContactService(t, 10, time.Hour)
	ctx := context.Background()

	var last *domain.ContactSubmission
	for i := 0; i < 4; i++ {
		sub, _, err := svc.Submit(ctx, humanSubmit())
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		last = sub
	}
	// 4th admission: count > 2 adds the repeat penalty on top of the
	// tokenless timing penalty.
	if last.BotScore != 80 {
		t.Fatalf("repeat client: score %d", last.BotScore)
	}
	if last.Status != domain.SubmissionFlagged || !last.IsFlagged {
		t.Fatalf("score 80 must flag: %+v", last)
	}
}

func TestSubmit_SpamContentFlagged(t *testing.T) {
	svc, _, _ := newContactService(t, 3, time.Hour)
	ctx := context.Background()

	in := humanSubmit()
	in.Message = "win bitcoin now"
	sub, _, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// 50 (tokenless) + 30 (content) = 80.
	if sub.BotScore != 80 || sub.Status != domain.SubmissionFlagged {
		t.Fatalf("spam content: score=%d status=%q", sub.BotScore, sub.Status)
	}
}

func TestFormToken_IsUnguessableAndStored(t *testing.T) {
	svc, _, _ := newContactService(t, 3, time.Hour)
	ctx := context.Background()

	a, err := svc.FormToken(ctx)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	b, err := svc.FormToken(ctx)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if a.Token == b.Token {
		t.Fatalf("tokens must be unique")
	}
	if len(a.Token) < 40 {
		t.Fatalf("token too short to be unguessable: %d chars", len(a.Token))
	}
	if _, hit, _ := svc.Cache.GetFormToken(ctx, a.Token); !hit {
		t.Fatalf("issued token must be redeemable")
	}
}

func TestUpdateSubmission_TriagePatch(t *testing.T) {
	svc, _, _ := newContactService(t, 10, time.Hour)
	ctx := context.Background()

	sub, _, err := svc.Submit(ctx, humanSubmit())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	read := true
	status := domain.SubmissionFlagged
	got, err := svc.UpdateSubmission(ctx, sub.ID, SubmissionPatch{IsRead: &read, Status: &status})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !got.IsRead || got.Status != domain.SubmissionFlagged {
		t.Fatalf("patch not applied: %+v", got)
	}

	bad := "nonsense"
	if _, err := svc.UpdateSubmission(ctx, sub.ID, SubmissionPatch{Status: &bad}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unknown status: %v", err)
	}
	if _, err := svc.UpdateSubmission(ctx, "ghost", SubmissionPatch{IsRead: &read}); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("missing submission: %v", err)
	}
}

func TestListSubmissions_PaginationMetadata(t *testing.T) {
	svc, _, _ := newContactService(t, 100, time.Hour)
	ctx := context.Background()

	// Each seed comes from its own origin so the repeat-submission signal
	// never pushes one onto the flagged route.
	for i := 0; i < 5; i++ {
		in := humanSubmit()
		in.Message = fmt.Sprintf("message %d", i)
		in.IPAddress = fmt.Sprintf("203.0.113.%d", 50+i)
		if _, _, err := svc.Submit(ctx, in); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	items, total, err := svc.ListSubmissions(ctx, "", 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(items) != 2 {
		t.Fatalf("page 1: total=%d n=%d", total, len(items))
	}
	items, _, err = svc.ListSubmissions(ctx, "", 3, 2)
	if err != nil || len(items) != 1 {
		t.Fatalf("last page: err=%v n=%d", err, len(items))
	}

	none, total, err := svc.ListSubmissions(ctx, domain.SubmissionFlagged, 1, 10)
	if err != nil || total != 0 || len(none) != 0 {
		t.Fatalf("empty filter result: err=%v total=%d n=%d", err, total, len(none))
	}
}

func TestDeleteSubmission(t *testing.T) {
	svc, _, _ := newContactService(t, 10, time.Hour)
	ctx := context.Background()

	sub, _, err := svc.Submit(ctx, humanSubmit())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.DeleteSubmission(ctx, sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteSubmission(ctx, sub.ID); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}
