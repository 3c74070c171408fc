package authn

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	issuer, err := NewIssuer(strings.Repeat("x", 32), "plenary", time.Hour)
	if err != nil {
		t.Fatalf("new issuer failed: %v", err)
	}
	issuer = issuer.WithClock(func() time.Time { return now })

	token, expiresAt, err := issuer.Issue("member-1", true)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", expiresAt)
	}
	principal, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if principal.Identity != "member-1" || !principal.Admin {
		t.Fatalf("unexpected principal %+v", principal)
	}

	later := issuer.WithClock(func() time.Time { return now.Add(2 * time.Hour) })
	if _, err := later.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	issuer, err := NewIssuer(strings.Repeat("x", 32), "plenary", time.Hour)
	if err != nil {
		t.Fatalf("new issuer failed: %v", err)
	}
	other, err := NewIssuer(strings.Repeat("y", 32), "plenary", time.Hour)
	if err != nil {
		t.Fatalf("new issuer failed: %v", err)
	}
	token, _, err := other.Issue("member-1", false)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature mismatch to fail, got %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "member-1", Issuer: "plenary"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none failed: %v", err)
	}
	if _, err := issuer.Verify(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg none to fail, got %v", err)
	}
	if _, err := issuer.Verify("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected malformed token to fail, got %v", err)
	}
}
