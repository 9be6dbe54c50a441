// Package cohere adapts the Cohere chat API to the components.Provider
// boundary.
package cohere

import (
	"context"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereClient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/mara-ai/mara/components"
)

const defaultModel = "command-r-plus"

type Provider struct {
	*cohereClient.Client

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

// New wraps an initialized cohere client.
func New(client *cohereClient.Client, opts ...Option) *Provider {
	p := &Provider{
		Client: client,
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "cohere" }

func (p *Provider) Generate(ctx context.Context, req *components.GenerateRequest) (*components.LLMResponse, error) {
	temperature := float64(req.Temperature)
	chatReq := &cohere.ChatRequest{
		Message:     req.Prompt,
		Model:       &p.model,
		Temperature: &temperature,
	}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		chatReq.MaxTokens = &maxTokens
	}
	resp, err := p.Chat(ctx, chatReq)
	if err != nil {
		return nil, classify(err)
	}
	out := &components.LLMResponse{
		Text:  resp.Text,
		Model: p.model,
	}
	if meta := resp.Meta; meta != nil && meta.Tokens != nil {
		out.Usage = new(components.LLMUsage)
		if v := meta.Tokens.InputTokens; v != nil {
			out.Usage.InputTokens = int64(*v)
		}
		if v := meta.Tokens.OutputTokens; v != nil {
			out.Usage.OutputTokens = int64(*v)
		}
	}
	return out, nil
}
