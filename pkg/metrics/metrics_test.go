package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveWebhook(t *testing.T) {
	m := New("wishlist", prometheus.NewRegistry())

	m.ObserveWebhook("user.created", "applied")
	m.ObserveWebhook("user.created", "applied")
	m.ObserveWebhook("", "rejected")

	if got := testutil.ToFloat64(m.webhookDeliveries.WithLabelValues("user.created", "applied")); got != 2 {
		t.Fatalf("expected 2 applied deliveries, got %v", got)
	}
	if got := testutil.ToFloat64(m.webhookDeliveries.WithLabelValues("unknown", "rejected")); got != 1 {
		t.Fatalf("expected 1 rejected delivery, got %v", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New("wishlist", prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/users/{username}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/users/alice", nil))

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/users/{username}", "404")); got != 1 {
		t.Fatalf("expected request counted under route pattern, got %v", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "wishlist_http_requests_total") {
		t.Fatalf("expected exposition to include request counter")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveWebhook("user.created", "applied")

	called := false
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatalf("expected passthrough handler")
	}
}
