package clerk

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecode matches every error returned by Decode.
	ErrDecode = errors.New("clerk: decode failed")

	ErrUnsupportedEventType = fmt.Errorf("%w: unsupported event type", ErrDecode)
	ErrMalformedPayload     = fmt.Errorf("%w: malformed payload", ErrDecode)
	ErrMissingEmail         = fmt.Errorf("%w: user has no email address", ErrDecode)
	ErrMissingUsername      = fmt.Errorf("%w: user has no username", ErrDecode)
)

type payload struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type userObject struct {
	ID              string         `json:"id"`
	EmailAddresses  []emailAddress `json:"email_addresses"`
	FirstName       *string        `json:"first_name"`
	LastName        *string        `json:"last_name"`
	ImageURL        *string        `json:"image_url"`
	ProfileImageURL *string        `json:"profile_image_url"`
	Username        *string        `json:"username"`
}

type deletedObject struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// Decode parses a verified webhook body. It never guesses: an unknown "type" yields
// ErrUnsupportedEventType and anything structurally wrong yields ErrMalformedPayload.
func Decode(raw []byte) (Event, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedPayload)
	}

	switch p.Type {
	case EventUserCreated, EventUserUpdated:
	case EventUserDeleted:
		return decodeDeleted(p.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEventType, p.Type)
	}

	data, err := decodeUser(p.Data)
	if err != nil {
		return nil, err
	}
	if p.Type == EventUserCreated {
		return UserCreated{User: data}, nil
	}
	return UserUpdated{User: data}, nil
}

func decodeUser(raw json.RawMessage) (UserData, error) {
	if isNull(raw) {
		return UserData{}, fmt.Errorf("%w: missing data", ErrMalformedPayload)
	}
	var u userObject
	if err := json.Unmarshal(raw, &u); err != nil {
		return UserData{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(u.ID) == "" {
		return UserData{}, fmt.Errorf("%w: missing data.id", ErrMalformedPayload)
	}
	if len(u.EmailAddresses) == 0 || strings.TrimSpace(u.EmailAddresses[0].EmailAddress) == "" {
		return UserData{}, ErrMissingEmail
	}
	username := deref(u.Username)
	if username == "" {
		return UserData{}, ErrMissingUsername
	}

	image := deref(u.ImageURL)
	if image == "" {
		image = deref(u.ProfileImageURL)
	}

	return UserData{
		ID:              u.ID,
		Email:           strings.TrimSpace(u.EmailAddresses[0].EmailAddress),
		FirstName:       deref(u.FirstName),
		LastName:        deref(u.LastName),
		ProfileImageURL: image,
		Username:        username,
	}, nil
}

func decodeDeleted(raw json.RawMessage) (Event, error) {
	if isNull(raw) {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedPayload)
	}
	var d deletedObject
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(d.ID) == "" {
		return nil, fmt.Errorf("%w: missing data.id", ErrMalformedPayload)
	}
	return UserDeleted{ID: d.ID}, nil
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
