package normalize

import (
	"encoding/json"
	"strings"
)

// Parse decodes raw model output into a Response. It never fails: when
// the output is not a well-formed JSON object carrying a reply, Parse
// returns a fallback Response whose Reply is the raw trimmed text and
// whose MedicalSafety is the FallbackSafety sentinel.
//
// Enumeration handling is deliberately permissive: out-of-enumeration
// lang/tone values from a well-formed parse are surfaced unmodified
// rather than coerced, so callers can inspect Source before trusting
// them. Missing lang/tone/medical_safety on an otherwise valid object
// are filled with the defaults the model was instructed to use.
func Parse(raw string) *Response {
	trimmed := strings.TrimSpace(raw)
	cleaned := stripFence(trimmed)

	var resp Response
	if !looksLikeObject(cleaned) || json.Unmarshal([]byte(cleaned), &resp) != nil || resp.Reply == "" {
		return fallback(trimmed)
	}

	if resp.Lang == "" {
		resp.Lang = LangEnglish
	}
	if resp.Tone == "" {
		resp.Tone = ToneFriendly
	}
	if resp.MedicalSafety == "" {
		resp.MedicalSafety = FallbackSafety
	}
	if resp.Action != nil && !knownActions[resp.Action.Name] {
		resp.Action = nil
	}
	resp.SearchResults = nil
	resp.Source = SourceValidated
	return &resp
}

// stripFence removes a surrounding fenced code block (with or without a
// language tag) from s. Text that is not fence-wrapped passes through
// unchanged, so stripping is idempotent.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimPrefix(s, "```")
	// Drop an optional language tag up to the first newline.
	if i := strings.IndexByte(body, '\n'); i >= 0 && !strings.ContainsAny(body[:i], "{}") {
		body = body[i+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

// looksLikeObject reports whether s can only decode as a JSON object.
// json.Unmarshal happily ignores "null" against a struct target, so the
// leading byte is checked explicitly.
func looksLikeObject(s string) bool {
	return strings.HasPrefix(s, "{")
}

// fallback builds the degraded-but-valid Response for unparseable output.
func fallback(raw string) *Response {
	return &Response{
		Reply:         raw,
		Lang:          LangEnglish,
		Tone:          ToneFriendly,
		Action:        nil,
		MedicalSafety: FallbackSafety,
		Source:        SourceFallback,
	}
}
