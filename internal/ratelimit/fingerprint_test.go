package ratelimit

import (
	"strings"
	"testing"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("203.0.113.9", "Mozilla/5.0")
	b := Fingerprint("203.0.113.9", "Mozilla/5.0")
	if a != b {
		t.Fatalf("same inputs must fingerprint identically: %q vs %q", a, b)
	}
}

func TestFingerprint_Shape(t *testing.T) {
	fp := Fingerprint("203.0.113.9", "Mozilla/5.0")
	if !strings.HasPrefix(fp, "203.0.113.9:") {
		t.Fatalf("fingerprint must start with the IP: %q", fp)
	}
	suffix := strings.TrimPrefix(fp, "203.0.113.9:")
	if len(suffix) != 16 {
		t.Fatalf("hash suffix must be 16 hex chars, got %d (%q)", len(suffix), suffix)
	}
	if fp != "203.0.113.9:"+suffix || strings.ToLower(suffix) != suffix {
		t.Fatalf("hash suffix must be lowercase hex: %q", suffix)
	}
}

func TestFingerprint_DistinguishesClients(t *testing.T) {
	base := Fingerprint("203.0.113.9", "Mozilla/5.0")
	if Fingerprint("203.0.113.10", "Mozilla/5.0") == base {
		t.Fatalf("different IPs must not collide")
	}
	if Fingerprint("203.0.113.9", "curl/8.0") == base {
		t.Fatalf("different user agents must not collide")
	}
}

func TestFingerprint_EmptyUserAgent(t *testing.T) {
	fp := Fingerprint("203.0.113.9", "")
	if !strings.HasPrefix(fp, "203.0.113.9:") || len(fp) != len("203.0.113.9:")+16 {
		t.Fatalf("empty user agent must still hash: %q", fp)
	}
}
