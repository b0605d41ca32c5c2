package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestObserveAuth(t *testing.T) {
	m := New()

	m.ObserveAuth(true, "")
	m.ObserveAuth(true, "")
	m.ObserveAuth(false, "missing_token")
	m.ObserveAuth(false, "invalid_token")
	m.ObserveAuth(false, "invalid_token")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var summary Summary
	if err := json.NewDecoder(rr.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}

	if summary.Auth.Successes != 2 {
		t.Errorf("expected 2 auth successes, got %v", summary.Auth.Successes)
	}
	if summary.Auth.Failures != 3 {
		t.Errorf("expected 3 auth failures, got %v", summary.Auth.Failures)
	}
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := New()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	}

	errHandler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	rr := httptest.NewRecorder()
	errHandler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tasks/missing", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var summary Summary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}

	if summary.HTTP.TotalRequests != 4 {
		t.Errorf("expected 4 total requests, got %v", summary.HTTP.TotalRequests)
	}
	if summary.HTTP.ErrorRate != 0.25 {
		t.Errorf("expected error rate 0.25, got %v", summary.HTTP.ErrorRate)
	}
}

func TestPrometheusHandler(t *testing.T) {
	m := New()
	m.ObserveAuth(false, "invalid_token")

	rr := httptest.NewRecorder()
	m.PrometheusHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body == "" {
		t.Error("expected non-empty exposition body")
	}
}
