package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aiushlabs/aiush-gateway/internal/auth"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"valid", "Bearer abc123", "abc123", nil},
		{"missing header", "", "", auth.ErrMissingCredential},
		{"wrong scheme", "Basic abc123", "", auth.ErrInvalidCredential},
		{"empty token", "Bearer ", "", auth.ErrInvalidCredential},
		{"whitespace token", "Bearer    ", "", auth.ErrInvalidCredential},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			got, err := auth.BearerToken(r)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("token = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIdentityContextRoundTrip(t *testing.T) {
	t.Parallel()

	want := auth.Identity{Subject: "uid-1", Email: "a@example.com"}
	ctx := auth.WithIdentity(context.Background(), want)

	got, ok := auth.FromContext(ctx)
	if !ok {
		t.Fatal("FromContext(ctx) not found after WithIdentity")
	}
	if got != want {
		t.Errorf("identity = %+v, want %+v", got, want)
	}

	if _, ok := auth.FromContext(context.Background()); ok {
		t.Error("FromContext on empty context reported an identity")
	}
}

func TestStaticVerifier(t *testing.T) {
	t.Parallel()

	v := &auth.StaticVerifier{Tokens: map[string]string{"dev-token": "dev-user"}}

	id, err := v.Verify(context.Background(), "dev-token")
	if err != nil {
		t.Fatalf("Verify(known token) error: %v", err)
	}
	if id.Subject != "dev-user" {
		t.Errorf("Subject = %q, want dev-user", id.Subject)
	}

	if _, err := v.Verify(context.Background(), "stranger"); !errors.Is(err, auth.ErrInvalidCredential) {
		t.Errorf("Verify(unknown token) = %v, want ErrInvalidCredential", err)
	}
}
