package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wishlist/wishlist-service/internal/user"
	"github.com/wishlist/wishlist-service/pkg/auth"
)

// UserReader serves the read side of the user store.
type UserReader interface {
	Get(ctx context.Context, externalID string) (user.Record, error)
	GetByUsername(ctx context.Context, username string) (user.Record, error)
}

type publicProfile struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"display_name"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	ProfileImageURL string    `json:"profile_image_url"`
	Bio             string    `json:"bio"`
	CreatedAt       time.Time `json:"created_at"`
}

func toPublicProfile(r user.Record) publicProfile {
	return publicProfile{
		ID:              r.ExternalID,
		Username:        r.Username,
		DisplayName:     r.DisplayName(),
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		ProfileImageURL: r.ProfileImageURL,
		Bio:             r.Bio,
		CreatedAt:       r.CreatedAt,
	}
}

// RegisterUserRoutes registers the user read endpoints. /me requires a bearer token.
func RegisterUserRoutes(r chi.Router, service UserReader, verifier auth.Verifier, logger *slog.Logger) {
	r.Route("/v1/users", func(r chi.Router) {
		r.With(auth.Middleware(verifier)).Get("/me", getMe(service, logger))
		r.Get("/{username}", getByUsername(service, logger))
	})
}

func getMe(service UserReader, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := auth.CallerFromContext(r.Context())
		if !ok || caller.UserID == "" {
			writeError(w, r, http.StatusUnauthorized, "missing user ID")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		record, err := service.Get(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				writeError(w, r, http.StatusNotFound, "user not synchronized yet")
				return
			}
			logRequestError(r.Context(), logger, "failed to load user", err, caller.UserID)
			writeError(w, r, http.StatusInternalServerError, "failed to load user")
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func getByUsername(service UserReader, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(chi.URLParam(r, "username"))
		if username == "" {
			writeError(w, r, http.StatusBadRequest, "missing username")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		record, err := service.GetByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				writeError(w, r, http.StatusNotFound, "user not found")
				return
			}
			logRequestError(r.Context(), logger, "failed to load user by username", err, "")
			writeError(w, r, http.StatusInternalServerError, "failed to load user")
			return
		}
		writeJSON(w, http.StatusOK, toPublicProfile(record))
	}
}
