// Package stt defines the Transcriber interface for speech-to-text
// backends of the Aiush gateway.
//
// Unlike streaming voice pipelines, the gateway transcribes complete
// audio clips: the client records an utterance, ships it as one blob,
// and receives the full transcript in the response. Implementations
// therefore expose a single batch Transcribe call.
//
// A provider reporting zero recognized alternatives is a successful
// call with an empty transcript, not an error. Vendor failures are
// translated into the parent provider package's sentinel kinds.
package stt

import "context"

// Transcriber is the abstraction over any batch speech-to-text backend.
//
// Implementations must be safe for concurrent use.
type Transcriber interface {
	// Transcribe submits a complete audio clip and returns its
	// transcript. An empty transcript with a nil error means the
	// provider recognized no speech.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
