package events

import "time"

// UserSynced is published after a Clerk user is created or refreshed in the user store.
// Consumers key on UserID; the remaining fields are a snapshot, not a diff.
type UserSynced struct {
	UserID          string    `json:"userId"`
	Email           string    `json:"email"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"displayName"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	SyncedAt        time.Time `json:"syncedAt"`
}

// UserDeleted is published after a Clerk user is removed, including replays for users
// that were already gone.
type UserDeleted struct {
	UserID    string    `json:"userId"`
	DeletedAt time.Time `json:"deletedAt"`
}
