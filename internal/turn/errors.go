package turn

import "errors"

var (
	// ErrBadRequest indicates the inbound turn is missing a required
	// field or carries an undecodable payload. No upstream call is made.
	ErrBadRequest = errors.New("bad request")

	// ErrProcessing indicates the turn failed during orchestration,
	// typically because an upstream invocation failed. Errors of this
	// kind wrap the upstream provider kind so transports can
	// distinguish unavailable/rejected/empty upstreams from internal
	// failures.
	ErrProcessing = errors.New("processing failed")
)
