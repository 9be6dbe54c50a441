// Package anthropic adapts the go-anthropic Messages API to the
// components.Provider boundary.
package anthropic

import (
	"context"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/mara-ai/mara/components"
)

const defaultModel = anthropic.ModelClaude3Dot5SonnetLatest

type Provider struct {
	*anthropic.Client

	model     anthropic.Model
	maxTokens int
}

var _ components.Provider = (*Provider)(nil)

type Option func(p *Provider)

// WithModel overrides the default generation model.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = anthropic.Model(model)
	}
}

// New wraps an initialized go-anthropic client.
func New(client *anthropic.Client, opts ...Option) *Provider {
	p := &Provider{
		Client:    client,
		model:     defaultModel,
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Generate(ctx context.Context, req *components.GenerateRequest) (*components.LLMResponse, error) {
	// the Messages API requires an explicit token budget
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	temperature := req.Temperature
	resp, err := p.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       p.model,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(req.Prompt),
		},
	})
	if err != nil {
		return nil, classify(err)
	}
	return &components.LLMResponse{
		Text:  resp.GetFirstContentText(),
		Model: string(resp.Model),
		Usage: &components.LLMUsage{
			InputTokens:  int64(resp.Usage.InputTokens),
			OutputTokens: int64(resp.Usage.OutputTokens),
		},
	}, nil
}
