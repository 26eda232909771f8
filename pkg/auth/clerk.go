package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

const clockLeeway = 5 * time.Second

// sessionClaims are the Clerk session token claims this service reads.
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type clerkVerifier struct {
	keyFunc jwt.Keyfunc
	parser  *jwt.Parser
}

func newClerkVerifier(cfg Config) (Verifier, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("clerk JWKS URL is required")
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		RefreshInterval:   10 * time.Minute,
		RefreshRateLimit:  time.Minute,
		RefreshTimeout:    5 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load clerk JWKS: %w", err)
	}
	return newClerkVerifierWithKeyfunc(jwks.Keyfunc, cfg), nil
}

func newClerkVerifierWithKeyfunc(kf jwt.Keyfunc, cfg Config) *clerkVerifier {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(clockLeeway),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &clerkVerifier{keyFunc: kf, parser: jwt.NewParser(opts...)}
}

func (v *clerkVerifier) Verify(_ context.Context, token string) (Caller, error) {
	var claims sessionClaims
	if _, err := v.parser.ParseWithClaims(token, &claims, v.keyFunc); err != nil {
		return Caller{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return Caller{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}

	caller := Caller{UserID: claims.Subject, SessionID: claims.SessionID}
	if claims.ExpiresAt != nil {
		caller.ExpiresAt = claims.ExpiresAt.Time
	}
	return caller, nil
}
