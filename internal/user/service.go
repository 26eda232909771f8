package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wishlist/wishlist-service/pkg/events"
	"github.com/wishlist/wishlist-service/pkg/pubsub"
)

// Service applies identity-provider events to the user store and serves reads.
// Every Apply method is idempotent under repeated delivery of the same event.
type Service struct {
	repo      Repository
	publisher events.Publisher
	clock     Clock
	validate  *validator.Validate
}

// NewService constructs a Service. A nil publisher disables event publishing and a nil
// clock uses the wall clock.
func NewService(repo Repository, publisher events.Publisher, clock Clock) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Service{repo: repo, publisher: publisher, clock: clock, validate: validator.New()}, nil
}

// ApplyCreated stores a new record. If one already exists it is returned untouched.
func (s *Service) ApplyCreated(ctx context.Context, attrs Attributes) (Record, error) {
	if err := s.validateAttributes(attrs); err != nil {
		return Record{}, err
	}

	existing, err := s.repo.FindByID(ctx, attrs.ExternalID)
	switch {
	case err == nil:
		return existing, s.publishSynced(ctx, existing)
	case !errors.Is(err, ErrUserNotFound):
		return Record{}, fmt.Errorf("find user %s: %w", attrs.ExternalID, err)
	}

	now := s.clock.Now().UTC()
	record := Record{ExternalID: attrs.ExternalID, CreatedAt: now, UpdatedAt: now}
	attrs.applyTo(&record)

	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return Record{}, ErrUsernameTaken
		}
		if !errors.Is(err, ErrUserExists) {
			return Record{}, fmt.Errorf("create user %s: %w", attrs.ExternalID, err)
		}
		// A concurrent delivery created it first.
		if record, err = s.repo.FindByID(ctx, attrs.ExternalID); err != nil {
			return Record{}, fmt.Errorf("find user %s: %w", attrs.ExternalID, err)
		}
	}

	return record, s.publishSynced(ctx, record)
}

// ApplyUpdated overwrites the provider-owned fields of an existing record. It returns
// ErrUserNotFound, leaving storage untouched, when the record does not exist.
func (s *Service) ApplyUpdated(ctx context.Context, attrs Attributes) (Record, error) {
	if err := s.validateAttributes(attrs); err != nil {
		return Record{}, err
	}

	now := s.clock.Now().UTC()
	record, err := s.repo.Update(ctx, attrs.ExternalID, func(r *Record) {
		attrs.applyTo(r)
		r.UpdatedAt = now
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return Record{}, ErrUserNotFound
		case errors.Is(err, ErrUsernameTaken):
			return Record{}, ErrUsernameTaken
		}
		return Record{}, fmt.Errorf("update user %s: %w", attrs.ExternalID, err)
	}

	return record, s.publishSynced(ctx, record)
}

// ApplyDeleted removes the record. Deleting a missing record succeeds.
func (s *Service) ApplyDeleted(ctx context.Context, externalID string) error {
	if strings.TrimSpace(externalID) == "" {
		return fmt.Errorf("%w: external id is required", ErrInvalidAttributes)
	}

	if err := s.repo.Remove(ctx, externalID); err != nil && !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("remove user %s: %w", externalID, err)
	}

	payload := events.UserDeleted{UserID: externalID, DeletedAt: s.clock.Now().UTC()}
	if err := s.publisher.Publish(ctx, pubsub.EventUserDeleted, externalID, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return nil
}

// Get returns the record for externalID.
func (s *Service) Get(ctx context.Context, externalID string) (Record, error) {
	if strings.TrimSpace(externalID) == "" {
		return Record{}, ErrUserNotFound
	}
	return s.repo.FindByID(ctx, externalID)
}

// GetByUsername returns the record owning username.
func (s *Service) GetByUsername(ctx context.Context, username string) (Record, error) {
	if strings.TrimSpace(username) == "" {
		return Record{}, ErrUserNotFound
	}
	return s.repo.FindByUsername(ctx, username)
}

func (s *Service) validateAttributes(attrs Attributes) error {
	if err := s.validate.Struct(attrs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAttributes, err)
	}
	return nil
}

func (s *Service) publishSynced(ctx context.Context, r Record) error {
	payload := events.UserSynced{
		UserID:          r.ExternalID,
		Email:           r.Email,
		Username:        r.Username,
		DisplayName:     r.DisplayName(),
		ProfileImageURL: r.ProfileImageURL,
		SyncedAt:        s.clock.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, pubsub.EventUserSynced, r.ExternalID, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return nil
}
