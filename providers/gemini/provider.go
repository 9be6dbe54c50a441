// Package gemini adapts Google's Generative AI SDK to the
// components.Provider boundary.
package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/mara-ai/mara/components"
)

const defaultModel = "gemini-1.5-pro"

type Provider struct {
	*genai.Client

	model string
}

var _ components.Provider = (*Provider)(nil)

type Option func(p *Provider)

// WithModel overrides the default generation model.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// New wraps an initialized genai client. The caller owns the client's
// lifecycle, including Close.
func New(client *genai.Client, opts ...Option) *Provider {
	p := &Provider{
		Client: client,
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Generate(ctx context.Context, req *components.GenerateRequest) (*components.LLMResponse, error) {
	model := p.GenerativeModel(p.model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, classify(err)
	}
	out := &components.LLMResponse{Model: p.model}
	if resp.UsageMetadata != nil {
		out.Usage = &components.LLMUsage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	out.Text = b.String()
	return out, nil
}
