package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aiushlabs/aiush-gateway/internal/auth"
)

func newLookupServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Query().Get("key") != "project-key" {
			t.Errorf("key = %q, want project-key", r.URL.Query().Get("key"))
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode lookup body: %v", err)
		}
		if req["idToken"] == "" {
			t.Error("lookup body missing idToken")
		}
		w.WriteHeader(status)
		if body != nil {
			json.NewEncoder(w).Encode(body)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenVerifier_ValidToken(t *testing.T) {
	t.Parallel()

	srv := newLookupServer(t, http.StatusOK, map[string]any{
		"users": []map[string]string{{"localId": "uid-42", "email": "u@example.com"}},
	})

	v, err := auth.NewTokenVerifier("project-key", auth.WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}

	id, err := v.Verify(context.Background(), "some-id-token")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Subject != "uid-42" {
		t.Errorf("Subject = %q, want uid-42", id.Subject)
	}
	if id.Email != "u@example.com" {
		t.Errorf("Email = %q, want u@example.com", id.Email)
	}
}

func TestTokenVerifier_RejectedToken(t *testing.T) {
	t.Parallel()

	srv := newLookupServer(t, http.StatusBadRequest, map[string]any{
		"error": map[string]any{"message": "INVALID_ID_TOKEN"},
	})

	v, err := auth.NewTokenVerifier("project-key", auth.WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}

	if _, err := v.Verify(context.Background(), "expired"); !errors.Is(err, auth.ErrInvalidCredential) {
		t.Errorf("Verify = %v, want ErrInvalidCredential", err)
	}
}

func TestTokenVerifier_NoAccount(t *testing.T) {
	t.Parallel()

	srv := newLookupServer(t, http.StatusOK, map[string]any{"users": []any{}})

	v, err := auth.NewTokenVerifier("project-key", auth.WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}

	if _, err := v.Verify(context.Background(), "orphan"); !errors.Is(err, auth.ErrInvalidCredential) {
		t.Errorf("Verify = %v, want ErrInvalidCredential", err)
	}
}

func TestNewTokenVerifier_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := auth.NewTokenVerifier(""); err == nil {
		t.Error("expected error for empty API key, got nil")
	}
}
