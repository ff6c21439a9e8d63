// Package tts defines the Synthesizer interface for text-to-speech
// backends of the Aiush gateway.
//
// The gateway does not stream audio to clients; the upstream provider
// hosts the rendered clip and the gateway hands back its URL. Vendor
// failures are translated into the parent provider package's sentinel
// kinds.
package tts

import "context"

// Synthesizer is the abstraction over any text-to-speech backend that
// renders speech to a hosted audio file.
//
// Implementations must be safe for concurrent use.
type Synthesizer interface {
	// Synthesize renders text with the provider's configured voice and
	// returns the URL of the hosted audio file.
	Synthesize(ctx context.Context, text string) (string, error)
}
