package errors

import (
	"net/http"
	"strings"
)

// ErrorResponse is the JSON error body of the wishlist read APIs.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

var statusByCode = map[string]int{
	"bad_request":              http.StatusBadRequest,
	"unauthorized":             http.StatusUnauthorized,
	"forbidden":                http.StatusForbidden,
	"not_found":                http.StatusNotFound,
	"conflict":                 http.StatusConflict,
	"request_entity_too_large": http.StatusRequestEntityTooLarge,
	"service_unavailable":      http.StatusServiceUnavailable,
}

// New builds an envelope whose code is derived from status.
func New(status int, message, requestID string) ErrorResponse {
	return ErrorResponse{Code: CodeFor(status), Message: message, RequestID: requestID}
}

// ToStatusCode maps an envelope code back to its HTTP status. Unknown codes are 500.
func ToStatusCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// CodeFor snake-cases the status text, e.g. 404 -> "not_found".
func CodeFor(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "internal_server_error"
	}
	return strings.ToLower(strings.ReplaceAll(text, " ", "_"))
}
