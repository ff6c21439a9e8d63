// Package gemini provides a Gemini-backed Generator using the official
// Google GenAI SDK. It implements the llm.Generator interface.
//
// The provider issues non-streaming generateContent calls with an
// optional Google Search grounding tool and maps the SDK's response
// and error shapes onto the gateway's provider-neutral types.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/aiushlabs/aiush-gateway/pkg/provider"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/llm"
)

const defaultModel = "gemini-2.5-flash"

// Compile-time assertion that Provider implements llm.Generator.
var _ llm.Generator = (*Provider)(nil)

// Option is a functional option for configuring the Gemini Provider.
type Option func(*config)

// config holds optional configuration applied at construction time.
type config struct {
	model   string
	baseURL string
	timeout time.Duration
}

// WithModel sets the Gemini model ID (e.g., "gemini-2.5-flash").
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithBaseURL overrides the default API endpoint. Primarily used in
// tests to point at a local mock server.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout. Zero means the
// transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Provider implements llm.Generator backed by the Gemini API.
type Provider struct {
	client *genai.Client
	model  string
}

// New creates a new Gemini Provider. apiKey must be non-empty.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.baseURL
	}
	if cfg.timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.timeout}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{client: client, model: cfg.model}, nil
}

// Generate implements llm.Generator.
func (p *Provider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts(convertParts(req.Parts), genai.RoleUser),
	}

	gcfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.EnableSearch {
		gcfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if req.Temperature > 0 {
		gcfg.Temperature = genai.Ptr(float32(req.Temperature))
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, gcfg)
	if err != nil {
		return nil, translateErr(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: %w", provider.ErrEmptyResponse)
	}

	return &llm.GenerateResult{
		Text:      text,
		Grounding: extractGrounding(resp),
	}, nil
}

// convertParts maps gateway parts onto SDK parts, preserving order.
func convertParts(parts []llm.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		if part.InlineData != nil {
			out = append(out, genai.NewPartFromBytes(part.InlineData.Data, part.InlineData.MIMEType))
			continue
		}
		out = append(out, genai.NewPartFromText(part.Text))
	}
	return out
}

// extractGrounding lifts the first candidate's grounding metadata into
// the provider-neutral shape. Returns nil when the model attached none.
func extractGrounding(resp *genai.GenerateContentResponse) *llm.GroundingMetadata {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	md := resp.Candidates[0].GroundingMetadata
	if len(md.GroundingChunks) == 0 {
		return nil
	}

	out := &llm.GroundingMetadata{Chunks: make([]llm.GroundingChunk, 0, len(md.GroundingChunks))}
	for _, chunk := range md.GroundingChunks {
		var web *llm.WebSource
		if chunk.Web != nil {
			web = &llm.WebSource{Title: chunk.Web.Title, URI: chunk.Web.URI}
		}
		out.Chunks = append(out.Chunks, llm.GroundingChunk{Web: web})
	}
	return out
}

// translateErr maps SDK errors to the gateway's provider error kinds.
// An APIError means the service answered with a non-success status;
// anything else is treated as a transport failure.
func translateErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gemini: status %d: %w: %s", apiErr.Code, provider.ErrRejected, apiErr.Message)
	}
	return fmt.Errorf("gemini: %w: %v", provider.ErrUnavailable, err)
}
