package user

import (
	"context"
	"sync"
)

// memoryRepository implements Repository using in-memory storage
type memoryRepository struct {
	mu         sync.RWMutex
	users      map[string]Record
	byUsername map[string]string
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:      make(map[string]Record),
		byUsername: make(map[string]string),
	}
}

func (r *memoryRepository) FindByID(_ context.Context, externalID string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.users[externalID]
	if !exists {
		return Record{}, ErrUserNotFound
	}
	return record, nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byUsername[username]
	if !exists {
		return Record{}, ErrUserNotFound
	}
	return r.users[id], nil
}

func (r *memoryRepository) Create(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[record.ExternalID]; exists {
		return ErrUserExists
	}
	if _, taken := r.byUsername[record.Username]; taken {
		return ErrUsernameTaken
	}

	r.users[record.ExternalID] = record
	r.byUsername[record.Username] = record.ExternalID
	return nil
}

func (r *memoryRepository) Update(_ context.Context, externalID string, mutate func(*Record)) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.users[externalID]
	if !exists {
		return Record{}, ErrUserNotFound
	}

	next := current
	mutate(&next)
	next.ExternalID = externalID

	if next.Username != current.Username {
		if owner, taken := r.byUsername[next.Username]; taken && owner != externalID {
			return Record{}, ErrUsernameTaken
		}
		delete(r.byUsername, current.Username)
		r.byUsername[next.Username] = externalID
	}

	r.users[externalID] = next
	return next, nil
}

func (r *memoryRepository) Remove(_ context.Context, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.users[externalID]
	if !exists {
		return ErrUserNotFound
	}

	delete(r.users, externalID)
	delete(r.byUsername, record.Username)
	return nil
}
