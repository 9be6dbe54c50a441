// Package openai adapts the go-openai chat completion API to the
// components.Provider boundary.
package openai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mara-ai/mara/components"
)

const defaultModel = openai.GPT4oMini

type Provider struct {
	*openai.Client

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

// New wraps an initialized go-openai client.
func New(client *openai.Client, opts ...Option) *Provider {
	p := &Provider{
		Client: client,
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Generate(ctx context.Context, req *components.GenerateRequest) (*components.LLMResponse, error) {
	resp, err := p.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return nil, classify(err)
	}
	out := &components.LLMResponse{
		Model: resp.Model,
		Usage: &components.LLMUsage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
		},
	}
	if len(resp.Choices) > 0 {
		out.Text = resp.Choices[0].Message.Content
	}
	return out, nil
}
