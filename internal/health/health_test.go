package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aiushlabs/aiush-gateway/internal/health"
)

func TestHealth_Banner(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	health.New().Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "online" {
		t.Errorf("status = %q, want online", body["status"])
	}
	if body["service"] != "Aiush Gateway" {
		t.Errorf("service = %q, want Aiush Gateway", body["service"])
	}
}

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	health.New().Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadyz_AllChecksPass(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Checker{Name: "postgres", Check: func(context.Context) error { return nil }},
	)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Checks["postgres"] != "ok" {
		t.Errorf("body = %+v", body)
	}
}

func TestReadyz_FailingCheck(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Checker{Name: "postgres", Check: func(context.Context) error { return errors.New("pool closed") }},
		health.Checker{Name: "noop", Check: func(context.Context) error { return nil }},
	)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want fail", body.Status)
	}
	if body.Checks["noop"] != "ok" {
		t.Errorf("noop check = %q, want ok", body.Checks["noop"])
	}
	if body.Checks["postgres"] == "ok" {
		t.Error("failing check reported ok")
	}
}

func TestRegister_Routes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	health.New().Register(mux)

	for _, path := range []string{"/health", "/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
