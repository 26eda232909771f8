package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wishlist/wishlist-service/internal/clerk"
	"github.com/wishlist/wishlist-service/internal/delivery"
	"github.com/wishlist/wishlist-service/internal/svix"
	"github.com/wishlist/wishlist-service/internal/user"
	"github.com/wishlist/wishlist-service/pkg/logging"
	"github.com/wishlist/wishlist-service/pkg/metrics"
)

const (
	serviceTimeout      = 8 * time.Second
	maxWebhookBodyBytes = 1 << 20
)

// Delivery outcomes reported to metrics.
const (
	outcomeRejected    = "rejected"
	outcomeUnsupported = "unsupported"
	outcomeDuplicate   = "duplicate"
	outcomeApplied     = "applied"
	outcomeFailed      = "failed"
)

// UserSynchronizer applies decoded identity events to local storage.
type UserSynchronizer interface {
	ApplyCreated(ctx context.Context, attrs user.Attributes) (user.Record, error)
	ApplyUpdated(ctx context.Context, attrs user.Attributes) (user.Record, error)
	ApplyDeleted(ctx context.Context, externalID string) error
}

// WebhookHandler serves POST /webhooks/clerk.
type WebhookHandler struct {
	verifier *svix.Verifier
	sync     UserSynchronizer
	ledger   delivery.Ledger
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewWebhookHandler wires the pipeline. A nil ledger disables duplicate detection and
// nil metrics record nothing.
func NewWebhookHandler(verifier *svix.Verifier, sync UserSynchronizer, ledger delivery.Ledger, m *metrics.Metrics, logger *slog.Logger) (*WebhookHandler, error) {
	if verifier == nil {
		return nil, errors.New("webhook verifier is required")
	}
	if sync == nil {
		return nil, errors.New("user synchronizer is required")
	}
	if ledger == nil {
		ledger = delivery.NoopLedger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{verifier: verifier, sync: sync, ledger: ledger, metrics: m, logger: logger}, nil
}

// RegisterWebhookRoutes mounts the Clerk webhook endpoint.
func RegisterWebhookRoutes(r chi.Router, h *WebhookHandler) {
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/clerk", h.handleClerk)
	})
}

func (h *WebhookHandler) handleClerk(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), h.logger)

	env := svix.Envelope{
		ID:        r.Header.Get(svix.HeaderID),
		Timestamp: r.Header.Get(svix.HeaderTimestamp),
		Signature: r.Header.Get(svix.HeaderSignature),
	}
	if env.ID == "" || env.Timestamp == "" || env.Signature == "" {
		h.reject(w, "", http.StatusBadRequest, "Error: Missing svix headers")
		return
	}
	logger = logger.With(slog.String("svixId", env.ID))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		logger.Warn("failed to read webhook body", slog.Any("error", err))
		h.reject(w, "", http.StatusBadRequest, "Error: Could not read webhook body")
		return
	}
	env.RawBody = body

	if err := h.verifier.Verify(env); err != nil {
		logger.Warn("could not verify webhook", slog.Any("error", err))
		h.reject(w, "", http.StatusBadRequest, err.Error())
		return
	}

	seen, err := h.ledger.Seen(r.Context(), env.ID)
	if err != nil {
		logger.Warn("delivery ledger lookup failed", slog.Any("error", err))
	}
	if seen {
		logger.Info("webhook already processed")
		h.metrics.ObserveWebhook("", outcomeDuplicate)
		writeAck(w, http.StatusOK, "Webhook already processed")
		return
	}

	evt, err := clerk.Decode(body)
	if err != nil {
		if errors.Is(err, clerk.ErrUnsupportedEventType) {
			logger.Info("ignoring unsupported webhook event", slog.Any("error", err))
			h.metrics.ObserveWebhook("", outcomeUnsupported)
			writeAck(w, http.StatusBadRequest, "Invalid event type")
			return
		}
		logger.Warn("could not decode webhook", slog.Any("error", err))
		h.reject(w, "", http.StatusBadRequest, err.Error())
		return
	}

	eventType := string(evt.Type())
	logger = logger.With(slog.String("eventType", eventType), slog.String("userId", evt.UserID()))

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	if err := h.apply(ctx, evt); err != nil {
		status := syncErrorStatus(err)
		if status >= http.StatusInternalServerError {
			logRequestError(r.Context(), h.logger, "failed to apply webhook", err, evt.UserID())
			h.metrics.ObserveWebhook(eventType, outcomeFailed)
			writeAck(w, status, "Error: Could not process webhook")
			return
		}
		logger.Warn("rejected webhook", slog.Any("error", err))
		h.reject(w, eventType, status, syncErrorMessage(err))
		return
	}

	if err := h.ledger.Mark(r.Context(), env.ID); err != nil {
		logger.Warn("failed to record delivery", slog.Any("error", err))
	}

	logger.Info("webhook applied")
	h.metrics.ObserveWebhook(eventType, outcomeApplied)
	writeAck(w, http.StatusOK, "Webhook received")
}

func (h *WebhookHandler) apply(ctx context.Context, evt clerk.Event) error {
	switch e := evt.(type) {
	case clerk.UserCreated:
		_, err := h.sync.ApplyCreated(ctx, attributesFrom(e.User))
		return err
	case clerk.UserUpdated:
		_, err := h.sync.ApplyUpdated(ctx, attributesFrom(e.User))
		return err
	case clerk.UserDeleted:
		return h.sync.ApplyDeleted(ctx, e.ID)
	default:
		return fmt.Errorf("unhandled event %T", evt)
	}
}

func (h *WebhookHandler) reject(w http.ResponseWriter, eventType string, status int, message string) {
	h.metrics.ObserveWebhook(eventType, outcomeRejected)
	writeAck(w, status, message)
}

// syncErrorStatus maps synchronizer errors caused by the delivery itself to 400; the
// rest are server faults the sender should retry.
func syncErrorStatus(err error) int {
	switch {
	case errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, user.ErrInvalidAttributes),
		errors.Is(err, user.ErrUsernameTaken):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// syncErrorMessage reports a rejected delivery by its cause, without store-level wrapping.
func syncErrorMessage(err error) string {
	for _, cause := range []error{user.ErrUserNotFound, user.ErrUsernameTaken} {
		if errors.Is(err, cause) {
			return cause.Error()
		}
	}
	return err.Error()
}

func attributesFrom(u clerk.UserData) user.Attributes {
	return user.Attributes{
		ExternalID:      u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		ProfileImageURL: u.ProfileImageURL,
		Username:        u.Username,
	}
}
