// Package mock provides a test double for the tts.Synthesizer interface.
package mock

import (
	"context"
	"sync"

	"github.com/aiushlabs/aiush-gateway/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Text is the text passed to Synthesize.
	Text string
}

// Synthesizer is a mock implementation of tts.Synthesizer.
// Set AudioURL to control the returned value and Err to inject an error.
type Synthesizer struct {
	mu sync.Mutex

	// AudioURL is returned from Synthesize when Err is nil.
	AudioURL string

	// Err, if non-nil, is returned from Synthesize.
	Err error

	// Calls records every Synthesize invocation in order.
	Calls []SynthesizeCall
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// Synthesize implements tts.Synthesizer.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, SynthesizeCall{Ctx: ctx, Text: text})
	s.mu.Unlock()

	if s.Err != nil {
		return "", s.Err
	}
	return s.AudioURL, nil
}

// CallCount returns the number of recorded Synthesize invocations.
func (s *Synthesizer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
