package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	v, err := NewVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:     "user-123",
		CampaignID: "campaign-456",
	}
	token := signToken(t, "test-secret", claims)

	got, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if got.UserID != "user-123" {
		t.Fatalf("expected user id user-123, got %q", got.UserID)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v, err := NewVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		UserID: "user-123",
	}
	token := signToken(t, "test-secret", claims)

	if _, err := v.Verify(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v, err := NewVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: "user-123",
	}
	token := signToken(t, "wrong-secret", claims)

	if _, err := v.Verify(token); err == nil {
		t.Fatal("expected error for token signed with wrong secret")
	}
}

func TestVerifyRejectsMissingUserID(t *testing.T) {
	v, err := NewVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := signToken(t, "test-secret", claims)

	if _, err := v.Verify(token); err == nil {
		t.Fatal("expected error for token missing user_id claim")
	}
}

func TestNewVerifierRejectsEmptySecret(t *testing.T) {
	if _, err := NewVerifier(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
