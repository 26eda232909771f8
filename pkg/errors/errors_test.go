package errors

import (
	"net/http"
	"testing"
)

func TestCodeRoundTrip(t *testing.T) {
	for _, status := range []int{
		http.StatusNotFound,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusConflict,
		http.StatusBadRequest,
		http.StatusRequestEntityTooLarge,
		http.StatusServiceUnavailable,
	} {
		if got := ToStatusCode(CodeFor(status)); got != status {
			t.Errorf("status %d: got %d", status, got)
		}
	}
	if got := ToStatusCode("teapot"); got != http.StatusInternalServerError {
		t.Errorf("unknown code should map to 500, got %d", got)
	}
}

func TestNew(t *testing.T) {
	got := New(http.StatusNotFound, "user not found", "req-1")
	want := ErrorResponse{Code: "not_found", Message: "user not found", RequestID: "req-1"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if code := CodeFor(799); code != "internal_server_error" {
		t.Fatalf("unknown status should fall back, got %q", code)
	}
}
