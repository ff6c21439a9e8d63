// Package history persists the per-owner conversation log of the Aiush
// gateway.
//
// The log is append-only: records are written once per turn, never
// updated, and deleted only in bulk by an explicit owner-initiated
// clear. Ordering across records is established solely by the store's
// server-assigned timestamp, not by arrival order at the gateway.
//
// Store is the synchronous PostgreSQL adapter; Sink wraps it with the
// bounded fire-and-forget write path the orchestrator uses so that
// persistence latency never appears in a caller-visible response.
package history

import (
	"context"
	"time"

	"github.com/aiushlabs/aiush-gateway/internal/normalize"
)

// Kind classifies the turn that produced a record.
type Kind string

const (
	KindChat  Kind = "chat"
	KindVoice Kind = "voice"
	KindOCR   Kind = "ocr"
)

// Record is one persisted, immutable log entry.
type Record struct {
	// ID is the store-assigned record identifier.
	ID int64

	// OwnerID is the identity the record belongs to. Records are
	// exclusively scoped to one owner.
	OwnerID string

	// InputSummary is the turn's text input, or a placeholder sentinel
	// for non-text turns.
	InputSummary string

	// Response is the normalized AI output produced for the turn.
	Response *normalize.Response

	// Kind classifies the turn.
	Kind Kind

	// CreatedAt is the server-assigned authoritative timestamp.
	CreatedAt time.Time

	// ClientTime is the client-observed creation time, used only for
	// immediate display before server time is known. Zero when the
	// client supplied none.
	ClientTime time.Time
}

// Entry is the write-side shape of a record, before the store assigns
// ID and CreatedAt.
type Entry struct {
	OwnerID      string
	InputSummary string
	Response     *normalize.Response
	Kind         Kind
	ClientTime   time.Time
}

// Writer is the append-only write surface consumed by the Sink.
type Writer interface {
	// EnsureOwner idempotently creates the owner root record. Safe to
	// call on every write; prevents silently-dropped writes when the
	// owner root is missing.
	EnsureOwner(ctx context.Context, ownerID string) error

	// Append writes one record with a server-assigned timestamp.
	Append(ctx context.Context, entry Entry) error
}
