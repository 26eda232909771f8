package user

import (
	"context"
	"strings"
	"time"
)

// Record is the locally persisted copy of a Clerk user, keyed by ExternalID.
type Record struct {
	ExternalID      string    `json:"id" firestore:"external_id"`
	Email           string    `json:"email" firestore:"email"`
	FirstName       string    `json:"first_name" firestore:"first_name"`
	LastName        string    `json:"last_name" firestore:"last_name"`
	ProfileImageURL string    `json:"profile_image_url" firestore:"profile_image_url"`
	Username        string    `json:"username" firestore:"username"`
	Bio             string    `json:"bio" firestore:"bio"`
	CreatedAt       time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" firestore:"updated_at"`
}

// DisplayName joins first and last name, falling back to the username.
func (r Record) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
	if name == "" {
		return r.Username
	}
	return name
}

// Attributes are the identity-provider owned fields carried by created/updated events.
type Attributes struct {
	ExternalID      string `validate:"required,max=191"`
	Email           string `validate:"required,email,max=320"`
	FirstName       string `validate:"max=255"`
	LastName        string `validate:"max=255"`
	ProfileImageURL string `validate:"omitempty,url,max=2048"`
	Username        string `validate:"required,max=64"`
}

func (a Attributes) applyTo(r *Record) {
	r.Email = a.Email
	r.FirstName = a.FirstName
	r.LastName = a.LastName
	r.ProfileImageURL = a.ProfileImageURL
	r.Username = a.Username
}

// Repository is the user store. Every method touches exactly one record and is atomic
// for that record.
type Repository interface {
	// FindByID returns ErrUserNotFound when no record exists.
	FindByID(ctx context.Context, externalID string) (Record, error)
	FindByUsername(ctx context.Context, username string) (Record, error)
	// Create returns ErrUserExists when externalID is taken and ErrUsernameTaken when
	// another record owns the username.
	Create(ctx context.Context, record Record) error
	// Update runs mutate against the current record inside a single transaction and
	// returns the stored result.
	Update(ctx context.Context, externalID string, mutate func(*Record)) (Record, error)
	// Remove returns ErrUserNotFound when no record exists.
	Remove(ctx context.Context, externalID string) error
}

// Clock delivers the current time; extracted for deterministic testing
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
