package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	sharederrors "github.com/wishlist/wishlist-service/pkg/errors"
)

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeNoop})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	h := Middleware(verifier)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate challenge")
	}
	var body sharederrors.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Code != "unauthorized" {
		t.Fatalf("expected unauthorized envelope, got %q (%v)", rec.Body.String(), err)
	}
}

func TestMiddlewareIgnoresUserIDHeader(t *testing.T) {
	verifier, _ := NewVerifier(Config{Mode: ModeNoop})
	h := Middleware(verifier)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "user_123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareStoresUser(t *testing.T) {
	verifier, _ := NewVerifier(Config{Mode: ModeNoop})

	var got Caller
	h := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CallerFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer user_123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got.UserID != "user_123" {
		t.Fatalf("expected user_123, got %+v", got)
	}
}

func TestNewVerifierUnknownMode(t *testing.T) {
	if _, err := NewVerifier(Config{Mode: "magic"}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if _, err := NewVerifier(Config{Mode: ModeClerk}); err == nil {
		t.Fatalf("expected error for clerk mode without JWKS URL")
	}
}

func TestClerkVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	kf := func(*jwt.Token) (any, error) { return &key.PublicKey, nil }
	v := newClerkVerifierWithKeyfunc(kf, Config{Issuer: "https://clerk.example.com"})

	sign := func(claims jwt.MapClaims) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = "ins_1"
		s, err := tok.SignedString(key)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	exp := time.Now().Add(time.Minute).Truncate(time.Second)
	user, err := v.Verify(context.Background(), sign(jwt.MapClaims{
		"sub": "user_1",
		"sid": "sess_1",
		"iss": "https://clerk.example.com",
		"exp": exp.Unix(),
	}))
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if user.UserID != "user_1" || user.SessionID != "sess_1" || !user.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := v.Verify(context.Background(), sign(jwt.MapClaims{
		"sub": "user_1",
		"iss": "https://evil.example.com",
		"exp": exp.Unix(),
	})); err == nil {
		t.Fatalf("expected issuer mismatch to fail")
	}

	if _, err := v.Verify(context.Background(), sign(jwt.MapClaims{
		"iss": "https://clerk.example.com",
		"exp": exp.Unix(),
	})); err == nil {
		t.Fatalf("expected missing subject to fail")
	}

	_, err = v.Verify(context.Background(), sign(jwt.MapClaims{
		"sub": "user_1",
		"iss": "https://clerk.example.com",
	}))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected token without exp to be unauthorized, got %v", err)
	}
}

func TestNoopVerifierRejectsJWTShapedTokens(t *testing.T) {
	v, _ := NewVerifier(Config{Mode: ModeNoop})
	if _, err := v.Verify(context.Background(), "eyJhbGciOi.eyJzdWIiOi.sig"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	caller, err := v.Verify(context.Background(), "user_123")
	if err != nil || caller.UserID != "user_123" {
		t.Fatalf("unexpected caller %+v (%v)", caller, err)
	}
}

func TestWithCallerRoundTrip(t *testing.T) {
	if _, ok := CallerFromContext(context.Background()); ok {
		t.Fatalf("expected no caller on a bare context")
	}
	ctx := WithCaller(context.Background(), Caller{UserID: "user_42", SessionID: "sess_1"})
	got, ok := CallerFromContext(ctx)
	if !ok || got.UserID != "user_42" || got.SessionID != "sess_1" {
		t.Fatalf("unexpected caller: %+v (%v)", got, ok)
	}
}
