package auth

import (
	"testing"
	"time"
)

func TestSignAndVerifyHS256(t *testing.T) {
	secret := "test-secret"
	claims := Claims{
		Sub:      42,
		BarberID: 42,
		Scope:    ScopePanel,
		Iat:      time.Now().Unix(),
		Exp:      time.Now().Add(time.Hour).Unix(),
	}

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	got, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if got.Sub != claims.Sub || got.BarberID != claims.BarberID || got.Scope != claims.Scope {
		t.Fatalf("claims round-trip mismatch: %+v", got)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	secret := "test-secret"
	token, err := SignHS256(Claims{Sub: 7, Scope: ScopeBookingView, Exp: time.Now().Add(time.Hour).Unix()}, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	if _, err := ParseAndVerifyHS256(token+"x", secret); err == nil {
		t.Fatal("expected tampered token to fail verification")
	}
	if _, err := ParseAndVerifyHS256(token, "other-secret"); err == nil {
		t.Fatal("expected wrong secret to fail verification")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	secret := "test-secret"
	token, err := SignHS256(Claims{Sub: 7, Scope: ScopeBookingView, Exp: time.Now().Add(-time.Minute).Unix()}, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, secret); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}
