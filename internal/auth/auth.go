// Package auth verifies caller credentials and derives the owner
// identity that scopes every history read and write.
//
// Token issuance is delegated to an external identity provider; this
// package only verifies bearer tokens against it. The verified
// Identity travels through the request as an explicit context value —
// never a global or a field smuggled onto the request object.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrMissingCredential indicates the request carried no bearer token.
	ErrMissingCredential = errors.New("missing bearer token")

	// ErrInvalidCredential indicates the bearer token failed verification.
	ErrInvalidCredential = errors.New("invalid token")
)

// Identity is the verified owner identity derived from a credential.
type Identity struct {
	// Subject is the stable owner identifier scoping history records.
	Subject string

	// Email is the owner's e-mail address when the identity provider
	// reports one.
	Email string
}

// Verifier validates a bearer token against the identity provider.
//
// Implementations must be safe for concurrent use.
type Verifier interface {
	// Verify returns the Identity encoded in token, or
	// ErrInvalidCredential (possibly wrapped) when the token is
	// invalid or expired.
	Verify(ctx context.Context, token string) (Identity, error)
}

// BearerToken extracts the bearer token from r's Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingCredential
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrInvalidCredential
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", ErrInvalidCredential
	}
	return token, nil
}

// ctxKey is the private context key type for Identity values.
type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the Identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
