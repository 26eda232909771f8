package user

import "errors"

var (
	// ErrUserNotFound indicates no record exists for the external id. For an update event
	// this means the delivery arrived before the matching create.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists indicates a duplicate external id on create.
	ErrUserExists = errors.New("user already exists")
	// ErrUsernameTaken indicates another record already owns the username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidAttributes indicates the event payload failed validation.
	ErrInvalidAttributes = errors.New("invalid user attributes")
	// ErrPublish indicates the store was updated but the downstream event was not delivered.
	ErrPublish = errors.New("publish user event")
)
