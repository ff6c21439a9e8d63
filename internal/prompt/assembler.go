// Package prompt assembles the multi-part model input for every turn
// handled by the Aiush gateway.
//
// Assembly is a pure transformation: a bounded window of prior turns is
// rendered into a context block, the current turn's text is appended,
// and an optional image part is placed ahead of the text part. Image
// parts must come first because the upstream model weights earlier
// parts more heavily when grounding its answer.
package prompt

import (
	"fmt"
	"strings"

	"github.com/aiushlabs/aiush-gateway/pkg/provider/llm"
)

// contextWindow is the maximum number of prior turns rendered into the
// context block. Older turns are dropped.
const contextWindow = 5

// SystemInstruction is the structured-output contract injected into
// every generative call. It pins the model to the safety rules and the
// exact JSON shape the normalizer expects.
const SystemInstruction = `
You are Aiush Agent, a safe health-information AI assistant.
Strict safety rules:
- Never diagnose a disease.
- Never prescribe any medicine or dosage.
- Always say "consult a doctor" when symptoms are severe.
- Provide only general educational information.

Output format:
You MUST output strictly valid JSON.
{
  "reply": "short helpful message (40-90 words)",
  "lang": "en | hi | te",
  "tone": "teaching | friendly | serious | storytelling",
  "action": null,
  "medical_safety": "General info only. Not a diagnosis."
}
`

// OCRInstruction is the fixed text part accompanying an image-analysis
// turn that carries no user text.
const OCRInstruction = "Extract medicines and uses. Output JSON only."

// ImageSummary is the sentinel persisted as the input summary of an
// image-analysis turn, which has no literal text input.
const ImageSummary = "[OCR Image]"

// ChatMessage is one prior turn of the conversation as supplied by the
// client.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Build composes the ordered content parts for a turn. text may be
// empty for image-only turns, image may be nil for text-only turns, and
// history is the client-supplied window of prior turns (only the most
// recent contextWindow entries are used, in original order).
func Build(text string, image []byte, history []ChatMessage) []llm.Part {
	parts := make([]llm.Part, 0, 2)
	if image != nil {
		parts = append(parts, llm.ImagePart("image/jpeg", image))
	}
	parts = append(parts, llm.TextPart(composeText(text, history)))
	return parts
}

// composeText renders the context block followed by the current input.
func composeText(text string, history []ChatMessage) string {
	var sb strings.Builder
	sb.WriteString("Previous Context:\n")
	sb.WriteString(contextBlock(history))
	sb.WriteString("\n\nUser's Current Input:\n")
	sb.WriteString(text)
	return sb.String()
}

// contextBlock renders the most recent turns as "<ROLE>: <content>"
// lines joined by newlines. Empty history renders as an empty block.
func contextBlock(history []ChatMessage) string {
	if len(history) > contextWindow {
		history = history[len(history)-contextWindow:]
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(m.Role), m.Content))
	}
	return strings.Join(lines, "\n")
}
