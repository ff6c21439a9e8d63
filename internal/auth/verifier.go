package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// defaultLookupURL is the Google Identity Toolkit token lookup endpoint
// used to verify Firebase-issued ID tokens.
const defaultLookupURL = "https://identitytoolkit.googleapis.com/v1/accounts:lookup"

// TokenVerifier verifies bearer tokens by calling the Identity Toolkit
// accounts:lookup endpoint. A token the endpoint cannot resolve to
// exactly one account is invalid.
type TokenVerifier struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// TokenVerifierOption is a functional option for NewTokenVerifier.
type TokenVerifierOption func(*TokenVerifier)

// WithEndpoint overrides the lookup endpoint. Primarily used in tests
// to point at a local mock server.
func WithEndpoint(u string) TokenVerifierOption {
	return func(v *TokenVerifier) { v.endpoint = u }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) TokenVerifierOption {
	return func(v *TokenVerifier) { v.httpClient.Timeout = d }
}

// NewTokenVerifier creates a TokenVerifier using apiKey as the Identity
// Toolkit project API key.
func NewTokenVerifier(apiKey string, opts ...TokenVerifierOption) (*TokenVerifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("auth: apiKey must not be empty")
	}
	v := &TokenVerifier{
		apiKey:     apiKey,
		endpoint:   defaultLookupURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

// lookupResponse is the subset of the accounts:lookup response the
// verifier consumes.
type lookupResponse struct {
	Users []struct {
		LocalID string `json:"localId"`
		Email   string `json:"email"`
	} `json:"users"`
}

// Verify implements Verifier.
func (v *TokenVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	payload, err := json.Marshal(map[string]string{"idToken": token})
	if err != nil {
		return Identity{}, fmt.Errorf("auth: encode lookup: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint+"?key="+v.apiKey, bytes.NewReader(payload))
	if err != nil {
		return Identity{}, fmt.Errorf("auth: build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("auth: token lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("%w: lookup status %d", ErrInvalidCredential, resp.StatusCode)
	}

	var lr lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return Identity{}, fmt.Errorf("auth: decode lookup: %w", err)
	}
	if len(lr.Users) != 1 || lr.Users[0].LocalID == "" {
		return Identity{}, fmt.Errorf("%w: token resolves to no account", ErrInvalidCredential)
	}

	return Identity{Subject: lr.Users[0].LocalID, Email: lr.Users[0].Email}, nil
}

// StaticVerifier resolves tokens against a fixed token→subject map.
// Intended for local development and tests; never configure it in
// production.
type StaticVerifier struct {
	// Tokens maps a bearer token to the subject it authenticates.
	Tokens map[string]string
}

// Verify implements Verifier.
func (v *StaticVerifier) Verify(_ context.Context, token string) (Identity, error) {
	subject, ok := v.Tokens[token]
	if !ok || subject == "" {
		return Identity{}, ErrInvalidCredential
	}
	return Identity{Subject: subject}, nil
}
