package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
  external_id       TEXT PRIMARY KEY,
  email             TEXT NOT NULL,
  first_name        TEXT NOT NULL DEFAULT '',
  last_name         TEXT NOT NULL DEFAULT '',
  profile_image_url TEXT NOT NULL DEFAULT '',
  username          TEXT NOT NULL UNIQUE,
  bio               TEXT NOT NULL DEFAULT '',
  created_at        TIMESTAMPTZ NOT NULL,
  updated_at        TIMESTAMPTZ NOT NULL
);`

const selectUser = `SELECT external_id, email, first_name, last_name, profile_image_url, username, bio, created_at, updated_at FROM users`

const uniqueViolation = "23505"

type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates the users table if needed and returns a Repository
// backed by pool.
func NewPostgresRepository(ctx context.Context, pool *pgxpool.Pool) (Repository, error) {
	if _, err := pool.Exec(ctx, usersSchema); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return &postgresRepository{pool: pool}, nil
}

func (r *postgresRepository) FindByID(ctx context.Context, externalID string) (Record, error) {
	return scanRecord(r.pool.QueryRow(ctx, selectUser+` WHERE external_id = $1`, externalID))
}

func (r *postgresRepository) FindByUsername(ctx context.Context, username string) (Record, error) {
	return scanRecord(r.pool.QueryRow(ctx, selectUser+` WHERE username = $1`, username))
}

func (r *postgresRepository) Create(ctx context.Context, record Record) error {
	tag, err := r.pool.Exec(ctx, `
INSERT INTO users (external_id, email, first_name, last_name, profile_image_url, username, bio, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (external_id) DO NOTHING`,
		record.ExternalID, record.Email, record.FirstName, record.LastName,
		record.ProfileImageURL, record.Username, record.Bio, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserExists
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, externalID string, mutate func(*Record)) (Record, error) {
	var updated Record
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		record, err := scanRecord(tx.QueryRow(ctx, selectUser+` WHERE external_id = $1 FOR UPDATE`, externalID))
		if err != nil {
			return err
		}
		mutate(&record)
		record.ExternalID = externalID

		_, err = tx.Exec(ctx, `
UPDATE users SET email = $2, first_name = $3, last_name = $4, profile_image_url = $5,
  username = $6, bio = $7, updated_at = $8
WHERE external_id = $1`,
			record.ExternalID, record.Email, record.FirstName, record.LastName,
			record.ProfileImageURL, record.Username, record.Bio, record.UpdatedAt)
		if err != nil {
			return mapWriteError(err)
		}
		updated = record
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return updated, nil
}

func (r *postgresRepository) Remove(ctx context.Context, externalID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE external_id = $1`, externalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ExternalID, &rec.Email, &rec.FirstName, &rec.LastName,
		&rec.ProfileImageURL, &rec.Username, &rec.Bio, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrUserNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrUsernameTaken, pgErr.ConstraintName)
	}
	return err
}
