package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wishlist/wishlist-service/pkg/dto"
	"github.com/wishlist/wishlist-service/pkg/metrics"
)

func TestHealthz(t *testing.T) {
	r := NewRouter("wishlist-service", nil, nil, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body dto.HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Service != "wishlist-service" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestMetricsRouteOnlyWhenEnabled(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter("svc", nil, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics, got %d", rec.Code)
	}

	m := metrics.New("svc", prometheus.NewRegistry())
	rec = httptest.NewRecorder()
	NewRouter("svc", nil, m, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with metrics, got %d", rec.Code)
	}
}

func TestRegisterCallback(t *testing.T) {
	r := NewRouter("svc", nil, nil, func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	r := NewRouter("svc", logger, nil, func(r chi.Router) {
		r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) })
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "ERROR" || entry["status"] != float64(http.StatusBadGateway) || entry["path"] != "/boom" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
	if id, _ := entry["requestId"].(string); id == "" {
		t.Fatalf("expected request id in %v", entry)
	}
}

func TestRunStopsOnContextCancelAndRunsHooks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))

	var calls []string
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, srv, logger,
			func(context.Context) error { calls = append(calls, "publisher"); return errors.New("flush failed") },
			func(context.Context) error { calls = append(calls, "store"); return nil },
		)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if strings.Join(calls, ",") != "publisher,store" {
		t.Fatalf("unexpected hook order: %v", calls)
	}
}
