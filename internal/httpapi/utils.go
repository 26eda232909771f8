package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/wishlist/wishlist-service/pkg/dto"
	sharederrors "github.com/wishlist/wishlist-service/pkg/errors"
)

type errorResponse = sharederrors.ErrorResponse

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, sharederrors.New(status, message, middleware.GetReqID(r.Context())))
}

func writeAck(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.WebhookResponse{Success: status < http.StatusBadRequest, Message: message})
}

func logRequestError(ctx context.Context, logger *slog.Logger, message string, err error, userID string) {
	if logger == nil || err == nil {
		return
	}
	attrs := []any{
		slog.String("userId", userID),
		slog.Any("error", err),
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		attrs = append(attrs, slog.String("requestId", reqID))
	}
	logger.Error(message, attrs...)
}
