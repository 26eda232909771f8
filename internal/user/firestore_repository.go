package user

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection     = "users"
	usernamesCollection = "usernames"
)

// usernameClaim lives at usernames/{username} and names the user owning it. It is
// written in the same transaction as the user document.
type usernameClaim struct {
	ExternalID string `firestore:"external_id"`
}

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a Repository storing one document per user under
// users/{externalID}, with usernames/{username} claims enforcing unique usernames.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) doc(externalID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(externalID)
}

func (r *firestoreRepository) claim(username string) *firestore.DocumentRef {
	return r.client.Collection(usernamesCollection).Doc(username)
}

func (r *firestoreRepository) FindByID(ctx context.Context, externalID string) (Record, error) {
	snap, err := r.doc(externalID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Record{}, ErrUserNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return decodeSnapshot(snap)
}

func (r *firestoreRepository) FindByUsername(ctx context.Context, username string) (Record, error) {
	iter := r.client.Collection(usersCollection).Where("username", "==", username).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return Record{}, ErrUserNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return decodeSnapshot(snap)
}

func (r *firestoreRepository) Create(ctx context.Context, record Record) error {
	docRef := r.doc(record.ExternalID)
	claimRef := r.claim(record.Username)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(docRef); err == nil {
			return ErrUserExists
		} else if status.Code(err) != codes.NotFound {
			return err
		}
		if err := checkClaim(tx, claimRef, record.ExternalID); err != nil {
			return err
		}

		if err := tx.Create(docRef, record); err != nil {
			return err
		}
		return tx.Set(claimRef, usernameClaim{ExternalID: record.ExternalID})
	})
}

func (r *firestoreRepository) Update(ctx context.Context, externalID string, mutate func(*Record)) (Record, error) {
	docRef := r.doc(externalID)

	var updated Record
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if status.Code(err) == codes.NotFound {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		current, err := decodeSnapshot(snap)
		if err != nil {
			return err
		}
		record := current
		mutate(&record)
		record.ExternalID = externalID

		renamed := record.Username != current.Username
		if renamed {
			if err := checkClaim(tx, r.claim(record.Username), externalID); err != nil {
				return err
			}
		}

		if err := tx.Set(docRef, record); err != nil {
			return err
		}
		if renamed {
			if err := tx.Delete(r.claim(current.Username)); err != nil {
				return err
			}
			if err := tx.Set(r.claim(record.Username), usernameClaim{ExternalID: externalID}); err != nil {
				return err
			}
		}
		updated = record
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return updated, nil
}

func (r *firestoreRepository) Remove(ctx context.Context, externalID string) error {
	docRef := r.doc(externalID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if status.Code(err) == codes.NotFound {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		record, err := decodeSnapshot(snap)
		if err != nil {
			return err
		}

		if err := tx.Delete(docRef); err != nil {
			return err
		}
		return tx.Delete(r.claim(record.Username))
	})
}

// checkClaim fails with ErrUsernameTaken when another user owns the claim.
func checkClaim(tx *firestore.Transaction, claimRef *firestore.DocumentRef, externalID string) error {
	snap, err := tx.Get(claimRef)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	if err != nil {
		return err
	}
	var c usernameClaim
	if err := snap.DataTo(&c); err != nil {
		return fmt.Errorf("unmarshal username claim: %w", err)
	}
	if c.ExternalID != externalID {
		return ErrUsernameTaken
	}
	return nil
}

func decodeSnapshot(snap *firestore.DocumentSnapshot) (Record, error) {
	var record Record
	if err := snap.DataTo(&record); err != nil {
		return Record{}, fmt.Errorf("unmarshal user: %w", err)
	}
	record.ExternalID = snap.Ref.ID
	return record, nil
}
