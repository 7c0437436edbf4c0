package auth

import (
	"context"
	"errors"
	"testing"

	"analystpro/internal/apperr"
)

func TestStaticVerify(t *testing.T) {
	v := Static{Session: Session{UserID: "u1", Email: "a@example.com"}}
	got, err := v.Verify("anything")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("Verify() = %+v", got)
	}
}

func TestStaticWithoutSessionRejects(t *testing.T) {
	if _, err := (Static{}).Verify("x"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("Verify() error = %v, want unauthorized", err)
	}
}

func TestVerifierRejectsEmptyToken(t *testing.T) {
	v := &Verifier{}
	if _, err := v.Verify("   "); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("Verify() error = %v, want unauthorized", err)
	}
}

func TestSessionContextRoundTrip(t *testing.T) {
	ctx := WithSession(context.Background(), Session{UserID: "u1"})
	got, ok := FromContext(ctx)
	if !ok || got.UserID != "u1" {
		t.Fatalf("FromContext() = %+v, %v", got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("FromContext() found a session on a bare context")
	}
}
