// Package auth authenticates API callers with Clerk session tokens.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	sharederrors "github.com/wishlist/wishlist-service/pkg/errors"
)

// Mode selects how bearer tokens are verified.
type Mode string

const (
	// ModeClerk verifies RS256 session tokens against Clerk's JWKS.
	ModeClerk Mode = "clerk"
	// ModeNoop trusts the bearer token as the user id. Local development only.
	ModeNoop Mode = "noop"
)

// Config selects and configures a Verifier. JWKSURL is required for ModeClerk.
type Config struct {
	Mode     Mode
	JWKSURL  string
	Audience string
	Issuer   string
}

// Caller is the subject of a verified session token.
type Caller struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// Verifier turns a bearer token into a Caller.
type Verifier interface {
	Verify(ctx context.Context, token string) (Caller, error)
}

// ErrUnauthorized matches every error produced while authenticating a request.
var ErrUnauthorized = errors.New("unauthorized")

var (
	errMissingAuthHeader = fmt.Errorf("%w: authorization header missing", ErrUnauthorized)
	errInvalidAuthHeader = fmt.Errorf("%w: authorization header is not a bearer token", ErrUnauthorized)
)

type ctxKey struct{}

// Middleware rejects requests without a valid bearer token. A nil verifier lets every
// request through unauthenticated.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				unauthorized(w, r, err)
				return
			}

			caller, err := verifier.Verify(r.Context(), token)
			if err != nil {
				unauthorized(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="wishlist"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(sharederrors.New(http.StatusUnauthorized, err.Error(), middleware.GetReqID(r.Context())))
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingAuthHeader
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", errInvalidAuthHeader
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errInvalidAuthHeader
	}
	return token, nil
}

// WithCaller stores c on ctx the way Middleware does.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// CallerFromContext returns the Caller stored by Middleware.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(Caller)
	return c, ok
}

// NewVerifier builds the Verifier selected by cfg.Mode.
func NewVerifier(cfg Config) (Verifier, error) {
	switch cfg.Mode {
	case ModeClerk:
		return newClerkVerifier(cfg)
	case ModeNoop:
		return noopVerifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %q", cfg.Mode)
	}
}
