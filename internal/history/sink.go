package history

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxInflight  = 64
	defaultWriteTimeout = 15 * time.Second
)

// ErrDropped is reported to the result observer when a write is
// discarded because the sink is at capacity.
var ErrDropped = errors.New("history: write dropped, sink at capacity")

// Sink is the bounded fire-and-forget write path over a Writer.
//
// Enqueue never blocks the caller: each accepted write runs in its own
// goroutine under a weighted semaphore, and when all slots are taken
// the write is dropped with a log entry rather than queued. Write
// failures are logged and counted but never surfaced — a persistence
// failure must not affect the caller-visible outcome of a turn.
type Sink struct {
	writer       Writer
	slots        *semaphore.Weighted
	writeTimeout time.Duration

	// onResult, when non-nil, observes the outcome of every attempted
	// write. Used by metrics wiring and tests.
	onResult func(err error)

	wg sync.WaitGroup
}

// SinkOption is a functional option for NewSink.
type SinkOption func(*Sink)

// WithMaxInflight caps the number of concurrently running writes.
// Defaults to 64.
func WithMaxInflight(n int64) SinkOption {
	return func(s *Sink) { s.slots = semaphore.NewWeighted(n) }
}

// WithWriteTimeout bounds how long a single background write may take.
// Defaults to 15 seconds.
func WithWriteTimeout(d time.Duration) SinkOption {
	return func(s *Sink) { s.writeTimeout = d }
}

// WithResultObserver registers fn to be called with the outcome of
// every attempted write (nil on success).
func WithResultObserver(fn func(err error)) SinkOption {
	return func(s *Sink) { s.onResult = fn }
}

// NewSink creates a Sink writing through w.
func NewSink(w Writer, opts ...SinkOption) *Sink {
	s := &Sink{
		writer:       w,
		slots:        semaphore.NewWeighted(defaultMaxInflight),
		writeTimeout: defaultWriteTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Enqueue schedules entry for persistence and returns immediately.
//
// The write runs on a detached context: cancellation of ctx (for
// example a client disconnect after the response was sent) does not
// abort an in-flight write, but request-scoped values such as trace
// context are preserved for log correlation.
func (s *Sink) Enqueue(ctx context.Context, entry Entry) {
	if !s.slots.TryAcquire(1) {
		slog.Warn("history write dropped, sink at capacity",
			"owner", entry.OwnerID, "kind", entry.Kind)
		if s.onResult != nil {
			s.onResult(ErrDropped)
		}
		return
	}

	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.slots.Release(1)

		writeCtx, cancel := context.WithTimeout(detached, s.writeTimeout)
		defer cancel()

		err := s.write(writeCtx, entry)
		if s.onResult != nil {
			s.onResult(err)
		}
		if err != nil {
			slog.Error("history write failed",
				"owner", entry.OwnerID, "kind", entry.Kind, "err", err)
		}
	}()
}

// write ensures the owner root exists, then appends the record.
func (s *Sink) write(ctx context.Context, entry Entry) error {
	if err := s.writer.EnsureOwner(ctx, entry.OwnerID); err != nil {
		return err
	}
	return s.writer.Append(ctx, entry)
}

// Drain waits for all in-flight writes to finish. Called during
// graceful shutdown after the HTTP server has stopped accepting turns.
func (s *Sink) Drain() {
	s.wg.Wait()
}
