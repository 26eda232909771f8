// Package svix verifies inbound webhooks signed with the Svix scheme used by Clerk.
package svix

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Header names carried by every Svix delivery.
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

const (
	secretPrefix     = "whsec_"
	signatureVersion = "v1"

	// DefaultTolerance is the allowed clock skew between the sender and this service.
	DefaultTolerance = 5 * time.Minute
)

var (
	// ErrMissingSecret is a configuration error: a verifier cannot be built without a secret.
	ErrMissingSecret = errors.New("svix: signing secret is required")
	// ErrInvalidSecret is a configuration error for a secret that is not valid base64.
	ErrInvalidSecret = errors.New("svix: signing secret is not valid base64")

	// ErrVerification matches every per-request verification failure below.
	ErrVerification     = errors.New("svix: verification failed")
	ErrMissingHeaders   = fmt.Errorf("%w: missing svix headers", ErrVerification)
	ErrInvalidTimestamp = fmt.Errorf("%w: invalid svix-timestamp header", ErrVerification)
	ErrExpiredTimestamp = fmt.Errorf("%w: message timestamp outside tolerance", ErrVerification)
	ErrInvalidSignature = fmt.Errorf("%w: no matching signature found", ErrVerification)
)

// Envelope is one inbound delivery: the three signed headers and the untouched body.
type Envelope struct {
	ID        string
	Timestamp string
	Signature string
	RawBody   []byte
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithTolerance overrides DefaultTolerance. Non-positive values are ignored.
func WithTolerance(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.tolerance = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// Verifier checks envelope signatures against a single shared secret. It holds no
// mutable state and is safe for concurrent use.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier decodes secret (optionally prefixed with "whsec_") and returns a Verifier.
func NewVerifier(secret string, opts ...Option) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	if len(key) == 0 {
		return nil, ErrMissingSecret
	}

	v := &Verifier{key: key, tolerance: DefaultTolerance, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify authenticates env. The timestamp is checked first, so a stale delivery fails
// with ErrExpiredTimestamp whatever its signature.
func (v *Verifier) Verify(env Envelope) error {
	if env.ID == "" || env.Timestamp == "" || env.Signature == "" {
		return ErrMissingHeaders
	}

	sent, err := parseTimestamp(env.Timestamp)
	if err != nil {
		return err
	}
	now := v.now()
	if now.Sub(sent) > v.tolerance || sent.Sub(now) > v.tolerance {
		return ErrExpiredTimestamp
	}

	expected := []byte(v.sign(env.ID, env.Timestamp, env.RawBody))
	for _, candidate := range strings.Fields(env.Signature) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != signatureVersion {
			continue
		}
		if hmac.Equal([]byte(sig), expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign returns a svix-signature header value for the given delivery.
func (v *Verifier) Sign(id, timestamp string, body []byte) string {
	return signatureVersion + "," + v.sign(id, timestamp, body)
}

func (v *Verifier) sign(id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id))
	mac.Write([]byte{'.'})
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func parseTimestamp(raw string) (time.Time, error) {
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, ErrInvalidTimestamp
	}
	return time.Unix(secs, 0), nil
}
