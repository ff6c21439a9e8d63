// Package normalize turns raw generative-model output into the
// canonical response shape the Aiush gateway returns to every caller.
//
// The model is instructed (via system prompt) to emit exactly one JSON
// object matching the Response shape, optionally wrapped in a fenced
// code block. Parse strips the fence and decodes the object; when the
// output is not a well-formed object, it degrades to a fallback
// Response that carries the raw text — a parse failure is never an
// error at this layer.
//
// The package also extracts web citations from upstream grounding
// metadata into the ordered searchResults list.
package normalize

// Lang is the reply language enumeration.
type Lang string

const (
	LangEnglish Lang = "en"
	LangHindi   Lang = "hi"
	LangTelugu  Lang = "te"
)

// IsValid reports whether l is a recognised language.
func (l Lang) IsValid() bool {
	switch l {
	case LangEnglish, LangHindi, LangTelugu:
		return true
	}
	return false
}

// Tone is the reply tone enumeration.
type Tone string

const (
	ToneTeaching     Tone = "teaching"
	ToneFriendly     Tone = "friendly"
	ToneSerious      Tone = "serious"
	ToneStorytelling Tone = "storytelling"
)

// IsValid reports whether t is a recognised tone.
func (t Tone) IsValid() bool {
	switch t {
	case ToneTeaching, ToneFriendly, ToneSerious, ToneStorytelling:
		return true
	}
	return false
}

// Source discriminates how a Response was produced.
type Source string

const (
	// SourceValidated means the model output parsed as the expected
	// JSON object.
	SourceValidated Source = "validated"

	// SourceFallback means the model output failed to parse and the
	// Response carries the raw text instead.
	SourceFallback Source = "fallback"
)

// FallbackSafety is the medical_safety sentinel marking a reply whose
// content is raw, unvalidated model output.
const FallbackSafety = "Raw output"

// Action is a structured directive the model may attach to a reply.
type Action struct {
	Name    string `json:"name"`
	Item    string `json:"item,omitempty"`
	Message string `json:"message,omitempty"`
	Time    string `json:"time,omitempty"`
}

// knownActions is the set of directive names the gateway honours. An
// action with any other name is dropped rather than forwarded.
var knownActions = map[string]bool{
	"set_reminder":     true,
	"add_todo":         true,
	"explain_medicine": true,
}

// SearchResult is one web citation backing a reply.
type SearchResult struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Response is the canonical AI output shape returned to every caller
// regardless of upstream variance.
//
// Reply, Lang, Tone, and MedicalSafety are always present and
// non-empty. Action is nil unless the model emitted a known directive.
// SearchResults is omitted from JSON entirely when no citation was
// usable — consumers render an empty list differently from absence.
type Response struct {
	Reply         string         `json:"reply"`
	Lang          Lang           `json:"lang"`
	Tone          Tone           `json:"tone"`
	Action        *Action        `json:"action"`
	MedicalSafety string         `json:"medical_safety"`
	SearchResults []SearchResult `json:"searchResults,omitempty"`

	// Source tells downstream code whether Lang/Tone are trustworthy
	// enumerants or raw pass-through. Never serialized.
	Source Source `json:"-"`
}
