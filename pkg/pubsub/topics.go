package pubsub

// Topic names used by the wishlist services.
const (
	TopicUserEvents = "user.events"
)

// Event types published on TopicUserEvents.
const (
	EventUserSynced  = "user.synced"
	EventUserDeleted = "user.deleted"
)
