// Package llm defines the Generator interface for the generative model
// backend of the Aiush gateway.
//
// A Generator wraps a remote multi-modal model API and exposes a single
// Generate call that accepts ordered content parts (image parts before
// text parts), a system instruction, an optional search-grounding tool
// flag, and a sampling temperature. It returns the model's raw text
// reply plus any grounding metadata the model attached to it.
//
// Implementations must be safe for concurrent use and must translate
// vendor failures into the sentinel kinds of the parent provider
// package: transport failures become provider.ErrUnavailable, non-2xx
// API statuses become provider.ErrRejected, and a success with no text
// becomes provider.ErrEmptyResponse. No retries are performed at this
// layer — retry policy, if any, belongs to the caller.
package llm

import "context"

// Part is one element of the model input. Exactly one of Text or
// InlineData is set.
type Part struct {
	// Text is a plain-text content part.
	Text string

	// InlineData is a binary content part (e.g., a JPEG image), already
	// decoded from any transport encoding.
	InlineData *Blob
}

// Blob is raw binary content tagged with its MIME type.
type Blob struct {
	MIMEType string
	Data     []byte
}

// TextPart returns a Part carrying text.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart returns a Part carrying inline binary data.
func ImagePart(mimeType string, data []byte) Part {
	return Part{InlineData: &Blob{MIMEType: mimeType, Data: data}}
}

// GenerateRequest carries everything the model needs to produce a reply.
type GenerateRequest struct {
	// Parts is the ordered model input. Order matters: image parts must
	// precede text parts because some models weight earlier parts more
	// heavily for grounding.
	Parts []Part

	// SystemInstruction is a high-priority instruction injected ahead of
	// the content, typically carrying the structured-output contract.
	SystemInstruction string

	// EnableSearch attaches the provider's web-search grounding tool so
	// the model can back its reply with citations.
	EnableSearch bool

	// Temperature controls output randomness. Zero means use the
	// provider default.
	Temperature float64
}

// GenerateResult is the raw outcome of a model invocation, before any
// normalization happens.
type GenerateResult struct {
	// Text is the model's raw text reply. Non-empty on success; a
	// Generator returns provider.ErrEmptyResponse instead of an empty
	// Text.
	Text string

	// Grounding carries the citation metadata the model attached to the
	// reply, or nil when the model produced none.
	Grounding *GroundingMetadata
}

// GroundingMetadata is the citation/grounding block attached to a
// generated reply.
type GroundingMetadata struct {
	// Chunks is the ordered list of citation chunks. A chunk without a
	// web reference carries no usable source.
	Chunks []GroundingChunk
}

// GroundingChunk is a single citation. Web is nil when the chunk does
// not reference a web source.
type GroundingChunk struct {
	Web *WebSource
}

// WebSource is a web citation backing part of a generated reply.
type WebSource struct {
	Title string
	URI   string
}

// Generator is the abstraction over the generative model backend.
//
// Implementations must be safe for concurrent use from multiple
// goroutines and must propagate context cancellation promptly.
type Generator interface {
	// Generate sends req to the model and waits for the full reply.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}
