// Package provider defines the error kinds shared by all upstream
// provider clients (LLM, STT, TTS).
//
// Every provider implementation translates its vendor-specific failures
// into exactly one of these sentinels (wrapped with context via
// fmt.Errorf and %w) so that callers can map failures to transport
// status codes without knowing which vendor was involved.
package provider

import "errors"

var (
	// ErrUnavailable indicates a transport-level failure talking to the
	// provider: connection refused, DNS failure, or a timeout.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrRejected indicates the provider was reachable but returned a
	// non-success status for the request.
	ErrRejected = errors.New("provider rejected request")

	// ErrEmptyResponse indicates the provider reported success but
	// returned no usable content.
	ErrEmptyResponse = errors.New("provider returned empty response")
)
