package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prismhq/go-queue-backend/internal/security"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	db := newServiceDB(t)
	tm, err := security.NewTokenManager("test-secret-0123456789", "queue-backend-test", 30*time.Minute)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	return NewAuthService(db, tm)
}

func TestLogin_RoundTrip(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "zoe", "zoe@example.com", "s3cret-pw", false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	token, user, err := svc.Login(ctx, "zoe", "s3cret-pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a signed token")
	}
	if user.ID != u.ID {
		t.Fatalf("wrong account: %s vs %s", user.ID, u.ID)
	}

	claims, err := svc.Tokens.Parse(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != u.ID || claims.IsAdmin {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestLogin_BadCredentialsIndistinguishable(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "zoe", "zoe@example.com", "s3cret-pw", false); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "zoe", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "s3cret-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestLogin_InactiveAccountRejected(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "zoe", "zoe@example.com", "s3cret-pw", false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.DB.Model(u).Update("is_active", false).Error; err != nil {
		t.Fatalf("disable: %v", err)
	}

	if _, _, err := svc.Login(ctx, "zoe", "s3cret-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("disabled account must look like bad credentials: %v", err)
	}
}

func TestMe_ReflectsAccountState(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "zoe", "zoe@example.com", "s3cret-pw", true)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.Me(ctx, Principal{UserID: u.ID, IsAdmin: true})
	if err != nil || got.Username != "zoe" {
		t.Fatalf("me: %v %+v", err, got)
	}

	if _, err := svc.Me(ctx, Principal{UserID: "ghost"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("removed account: %v", err)
	}

	if err := svc.DB.Model(u).Update("is_active", false).Error; err != nil {
		t.Fatalf("disable: %v", err)
	}
	if _, err := svc.Me(ctx, Principal{UserID: u.ID}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("disabled account: %v", err)
	}
}
