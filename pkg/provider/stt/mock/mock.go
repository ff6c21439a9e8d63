// Package mock provides a test double for the stt.Transcriber interface.
package mock

import (
	"context"
	"sync"

	"github.com/aiushlabs/aiush-gateway/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Audio is the audio payload passed to Transcribe.
	Audio []byte
}

// Transcriber is a mock implementation of stt.Transcriber.
// Set Transcript to control the returned value and Err to inject an error.
type Transcriber struct {
	mu sync.Mutex

	// Transcript is returned from Transcribe when Err is nil.
	Transcript string

	// Err, if non-nil, is returned from Transcribe.
	Err error

	// Calls records every Transcribe invocation in order.
	Calls []TranscribeCall
}

var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	t.mu.Lock()
	t.Calls = append(t.Calls, TranscribeCall{Ctx: ctx, Audio: audio})
	t.mu.Unlock()

	if t.Err != nil {
		return "", t.Err
	}
	return t.Transcript, nil
}

// CallCount returns the number of recorded Transcribe invocations.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
