// Package turn orchestrates one user-initiated exchange against the
// upstream AI providers.
//
// Each operation follows the same sequence: the verified owner identity
// is read from the request context, the multi-part model input is
// assembled, exactly one upstream call is made, the raw output is
// normalized, and the exchange is handed to the history sink without
// awaiting persistence. The caller-visible latency of a turn is bounded
// by assembly plus one upstream call plus local parsing — never by
// persistence.
//
// A structured-output parse failure is not an error: it degrades to the
// normalizer's fallback response and the turn still succeeds.
package turn

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aiushlabs/aiush-gateway/internal/auth"
	"github.com/aiushlabs/aiush-gateway/internal/history"
	"github.com/aiushlabs/aiush-gateway/internal/normalize"
	"github.com/aiushlabs/aiush-gateway/internal/observe"
	"github.com/aiushlabs/aiush-gateway/internal/prompt"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/llm"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/stt"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/tts"
)

// defaultTemperature is the sampling temperature for generative calls.
const defaultTemperature = 0.7

// Orchestrator ties the prompt assembler, providers, normalizer, and
// history sink together per inbound turn. Safe for concurrent use; all
// state is read-only after construction.
type Orchestrator struct {
	generator   llm.Generator
	transcriber stt.Transcriber
	synthesizer tts.Synthesizer
	sink        *history.Sink
	metrics     *observe.Metrics
	temperature float64
}

// Option is a functional option for New.
type Option func(*Orchestrator)

// WithTemperature overrides the sampling temperature for generative
// calls. Defaults to 0.7.
func WithTemperature(t float64) Option {
	return func(o *Orchestrator) { o.temperature = t }
}

// New creates an Orchestrator. All dependencies are required.
func New(gen llm.Generator, tr stt.Transcriber, syn tts.Synthesizer, sink *history.Sink, m *observe.Metrics, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator:   gen,
		transcriber: tr,
		synthesizer: syn,
		sink:        sink,
		metrics:     m,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Message handles a text turn: assemble prompt with the client-supplied
// context window, invoke the model with search grounding, normalize,
// persist asynchronously, and return the normalized response.
func (o *Orchestrator) Message(ctx context.Context, text string, hist []prompt.ChatMessage) (*normalize.Response, error) {
	owner, ok := auth.FromContext(ctx)
	if !ok {
		return nil, auth.ErrMissingCredential
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message must not be empty", ErrBadRequest)
	}

	resp, err := o.generateTurn(ctx, prompt.Build(text, nil, hist), history.KindChat)
	if err != nil {
		return nil, err
	}

	o.sink.Enqueue(ctx, history.Entry{
		OwnerID:      owner.Subject,
		InputSummary: text,
		Response:     resp,
		Kind:         history.KindChat,
	})
	return resp, nil
}

// AnalyzeImage handles an image-analysis turn. image is the
// base64-or-data-URL payload from the client; the decoded bytes are
// sent as the leading content part with a fixed extraction instruction.
func (o *Orchestrator) AnalyzeImage(ctx context.Context, image string) (*normalize.Response, error) {
	owner, ok := auth.FromContext(ctx)
	if !ok {
		return nil, auth.ErrMissingCredential
	}

	data, err := decodeImage(image)
	if err != nil {
		return nil, err
	}

	resp, err := o.generateTurn(ctx, prompt.Build(prompt.OCRInstruction, data, nil), history.KindOCR)
	if err != nil {
		return nil, err
	}

	o.sink.Enqueue(ctx, history.Entry{
		OwnerID:      owner.Subject,
		InputSummary: prompt.ImageSummary,
		Response:     resp,
		Kind:         history.KindOCR,
	})
	return resp, nil
}

// Transcribe handles a voice turn: decode the audio payload and return
// its transcript. An empty transcript is a successful outcome, and no
// history record is written for transcription alone.
func (o *Orchestrator) Transcribe(ctx context.Context, audioB64 string) (string, error) {
	if _, ok := auth.FromContext(ctx); !ok {
		return "", auth.ErrMissingCredential
	}
	if audioB64 == "" {
		return "", fmt.Errorf("%w: audio must not be empty", ErrBadRequest)
	}
	audio, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return "", fmt.Errorf("%w: audio is not valid base64", ErrBadRequest)
	}

	start := time.Now()
	transcript, err := o.transcriber.Transcribe(ctx, audio)
	o.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		o.countTurn(ctx, history.KindVoice, "error")
		return "", fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	o.countTurn(ctx, history.KindVoice, "ok")
	return transcript, nil
}

// Synthesize renders text to speech and returns the hosted audio URL.
func (o *Orchestrator) Synthesize(ctx context.Context, text string) (string, error) {
	if _, ok := auth.FromContext(ctx); !ok {
		return "", auth.ErrMissingCredential
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: text must not be empty", ErrBadRequest)
	}

	start := time.Now()
	audioURL, err := o.synthesizer.Synthesize(ctx, text)
	o.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	return audioURL, nil
}

// generateTurn performs the invoke → parse → extract-grounding sequence
// shared by text and image turns.
func (o *Orchestrator) generateTurn(ctx context.Context, parts []llm.Part, kind history.Kind) (*normalize.Response, error) {
	turnID := uuid.NewString()
	ctx, span := observe.StartSpan(ctx, "turn.generate")
	defer span.End()

	start := time.Now()
	result, err := o.generator.Generate(ctx, llm.GenerateRequest{
		Parts:             parts,
		SystemInstruction: prompt.SystemInstruction,
		EnableSearch:      true,
		Temperature:       o.temperature,
	})
	o.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		o.countTurn(ctx, kind, "error")
		observe.Logger(ctx).Error("model invocation failed", "turn", turnID, "kind", kind, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	resp := normalize.Parse(result.Text)
	if resp.Source == normalize.SourceFallback {
		o.metrics.FallbackResponses.Add(ctx, 1)
		observe.Logger(ctx).Warn("model output failed structured parse, serving fallback", "turn", turnID, "kind", kind)
	}
	resp.SearchResults = normalize.Sources(result.Grounding)

	o.countTurn(ctx, kind, "ok")
	return resp, nil
}

// countTurn records one handled turn with its outcome.
func (o *Orchestrator) countTurn(ctx context.Context, kind history.Kind, status string) {
	o.metrics.Turns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("status", status),
	))
}

// decodeImage decodes a base64 image payload, accepting both bare
// base64 and data-URL forms ("data:image/jpeg;base64,...").
func decodeImage(image string) ([]byte, error) {
	if image == "" {
		return nil, fmt.Errorf("%w: image must not be empty", ErrBadRequest)
	}
	if i := strings.Index(image, "base64,"); i >= 0 {
		image = image[i+len("base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64", ErrBadRequest)
	}
	return data, nil
}
