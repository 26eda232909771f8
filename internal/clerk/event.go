// Package clerk decodes Clerk user webhook payloads into typed events.
package clerk

// EventType is the discriminant carried in the "type" field of a Clerk webhook.
type EventType string

const (
	EventUserCreated EventType = "user.created"
	EventUserUpdated EventType = "user.updated"
	EventUserDeleted EventType = "user.deleted"
)

// Event is one of UserCreated, UserUpdated or UserDeleted.
type Event interface {
	Type() EventType
	UserID() string
	sealed()
}

// UserData is the subset of a Clerk user object that is synchronized locally.
type UserData struct {
	ID              string
	Email           string
	FirstName       string
	LastName        string
	ProfileImageURL string
	Username        string
}

type UserCreated struct{ User UserData }

type UserUpdated struct{ User UserData }

type UserDeleted struct{ ID string }

func (UserCreated) Type() EventType { return EventUserCreated }
func (UserUpdated) Type() EventType { return EventUserUpdated }
func (UserDeleted) Type() EventType { return EventUserDeleted }

func (e UserCreated) UserID() string { return e.User.ID }
func (e UserUpdated) UserID() string { return e.User.ID }
func (e UserDeleted) UserID() string { return e.ID }

func (UserCreated) sealed() {}
func (UserUpdated) sealed() {}
func (UserDeleted) sealed() {}
