// Package auth verifies bearer identity tokens against a JWKS endpoint and
// carries the resulting session through request contexts.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"analystpro/internal/apperr"
)

// Session is the verified identity attached to a request. OwnerID keys all
// project reads and writes.
type Session struct {
	UserID string
	Email  string
	Name   string
}

// Claims are the token fields the service cares about.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// TokenVerifier turns a raw bearer token into a session.
type TokenVerifier interface {
	Verify(token string) (Session, error)
}

// Verifier validates tokens against a remote JWKS. Key caching and refresh
// are handled by keyfunc.
type Verifier struct {
	jwks keyfunc.Keyfunc
}

func NewVerifier(ctx context.Context, jwksURL string) (*Verifier, error) {
	jwksURL = strings.TrimSpace(jwksURL)
	if jwksURL == "" {
		return nil, fmt.Errorf("auth: jwks url is required")
	}
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("auth: init jwks client: %w", err)
	}
	return &Verifier{jwks: jwks}, nil
}

func unauthorized(msg string) error {
	return &apperr.AuthorizationError{Message: msg}
}

// Verify parses and validates the token. Only asymmetric signatures are
// accepted, and the account's email must be verified.
func (v *Verifier) Verify(raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, unauthorized("missing bearer token")
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, v.jwks.Keyfunc)
	if err != nil || !token.Valid {
		return Session{}, unauthorized("invalid token")
	}

	// Guard against algorithm confusion; HS* would let the JWKS content be
	// abused as an HMAC secret.
	switch token.Method.Alg() {
	case "RS256", "ES256":
	default:
		return Session{}, unauthorized("unexpected signing algorithm")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return Session{}, unauthorized("malformed claims")
	}
	if claims.Subject == "" {
		return Session{}, unauthorized("token missing subject")
	}
	if !claims.EmailVerified {
		return Session{}, unauthorized("email address not verified")
	}

	return Session{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
	}, nil
}

// Static always returns a fixed session. Used for local runs without an
// identity provider and in tests.
type Static struct {
	Session Session
}

func (s Static) Verify(string) (Session, error) {
	if s.Session.UserID == "" {
		return Session{}, unauthorized("no local session configured")
	}
	return s.Session, nil
}

type ctxKey struct{}

// WithSession attaches the session to the context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by middleware, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
