// Package murf provides a Murf-backed Synthesizer using the Murf
// speech generation REST API. It implements the tts.Synthesizer
// interface.
//
// Each call renders the full text with a fixed voice and returns the
// URL of the MP3 file Murf hosts for the rendered clip.
package murf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aiushlabs/aiush-gateway/pkg/provider"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/tts"
)

const (
	defaultBaseURL = "https://api.murf.ai"
	defaultVoiceID = "en-US-marcus"
	defaultFormat  = "MP3"
)

// Compile-time assertion that Provider implements tts.Synthesizer.
var _ tts.Synthesizer = (*Provider)(nil)

// Option is a functional option for configuring the Murf Provider.
type Option func(*Provider)

// WithVoiceID sets the Murf voice identifier (e.g., "en-US-marcus").
func WithVoiceID(id string) Option {
	return func(p *Provider) { p.voiceID = id }
}

// WithBaseURL overrides the default API endpoint. Primarily used in
// tests to point at a local mock server.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithTimeout sets a per-request HTTP timeout. Zero means the
// transport default.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// Provider implements tts.Synthesizer backed by the Murf API.
type Provider struct {
	apiKey     string
	baseURL    string
	voiceID    string
	httpClient *http.Client
}

// New creates a new Murf Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("murf: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		voiceID:    defaultVoiceID,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// generateRequest is the JSON payload sent to POST /v1/speech/generate.
type generateRequest struct {
	VoiceID string `json:"voiceId"`
	Text    string `json:"text"`
	Format  string `json:"format"`
}

// generateResponse is the subset of the Murf response the gateway consumes.
type generateResponse struct {
	AudioFile string `json:"audioFile"`
}

// Synthesize implements tts.Synthesizer.
func (p *Provider) Synthesize(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		VoiceID: p.voiceID,
		Text:    text,
		Format:  defaultFormat,
	})
	if err != nil {
		return "", fmt.Errorf("murf: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/speech/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("murf: build request: %w", err)
	}
	req.Header.Set("api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("murf: %w: %v", provider.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("murf: status %d: %w: %s", resp.StatusCode, provider.ErrRejected, bytes.TrimSpace(body))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("murf: decode response: %w", err)
	}
	if gr.AudioFile == "" {
		return "", fmt.Errorf("murf: %w", provider.ErrEmptyResponse)
	}
	return gr.AudioFile, nil
}
