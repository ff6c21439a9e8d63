// Package deepgram provides a Deepgram-backed Transcriber using the
// Deepgram prerecorded audio API. It implements the stt.Transcriber
// interface.
//
// Audio is submitted as a single POST to /v1/listen with a fixed model
// and smart formatting enabled; the transcript of the first channel's
// first alternative is returned. Deepgram reporting no alternatives is
// treated as an empty transcript, not a failure.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aiushlabs/aiush-gateway/pkg/provider"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/stt"
)

const (
	defaultBaseURL     = "https://api.deepgram.com"
	defaultModel       = "nova-2"
	defaultContentType = "audio/wav"
)

// Compile-time assertion that Provider implements stt.Transcriber.
var _ stt.Transcriber = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-2", "nova-3").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the default API endpoint. Primarily used in
// tests to point at a local mock server.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithContentType sets the Content-Type sent with the audio payload.
// Defaults to "audio/wav".
func WithContentType(ct string) Option {
	return func(p *Provider) { p.contentType = ct }
}

// WithTimeout sets a per-request HTTP timeout. Zero means the
// transport default.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// Provider implements stt.Transcriber backed by the Deepgram
// prerecorded API.
type Provider struct {
	apiKey      string
	baseURL     string
	model       string
	contentType string
	httpClient  *http.Client
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		model:       defaultModel,
		contentType: defaultContentType,
		httpClient:  &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// listenResponse is the subset of the Deepgram prerecorded response the
// gateway consumes.
type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe implements stt.Transcriber.
func (p *Provider) Transcribe(ctx context.Context, audio []byte) (string, error) {
	endpoint, err := p.buildURL()
	if err != nil {
		return "", fmt.Errorf("deepgram: build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("deepgram: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", p.contentType)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram: %w: %v", provider.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("deepgram: status %d: %w: %s", resp.StatusCode, provider.ErrRejected, bytes.TrimSpace(body))
	}

	var lr listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("deepgram: decode response: %w", err)
	}

	return firstTranscript(&lr), nil
}

// buildURL constructs the prerecorded endpoint URL with query params.
func (p *Provider) buildURL() (string, error) {
	u, err := url.Parse(p.baseURL + "/v1/listen")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("model", p.model)
	q.Set("smart_format", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// firstTranscript returns the transcript of the first alternative of
// the first channel, or "" when Deepgram recognized nothing.
func firstTranscript(lr *listenResponse) string {
	if len(lr.Results.Channels) == 0 {
		return ""
	}
	alts := lr.Results.Channels[0].Alternatives
	if len(alts) == 0 {
		return ""
	}
	return alts[0].Transcript
}
