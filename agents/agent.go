// Package agents implements the closed set of pipeline stage agents:
// PromptDesigner, FrameworkEngineer, ResearchAnalyst and SynthesisExpert.
// Each variant builds its own prompt from the accumulated pipeline state
// and parses the raw model response into a typed stage output.
package agents

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mara-ai/mara/components"
	"github.com/mara-ai/mara/components/systemprompt"
)

// Config represents general stage agent configuration.
type Config struct {
	// client issues rate-guarded calls against the language model.
	client *components.ModelClient
	// prompt generates the agent's system prompt.
	prompt *systemprompt.Generator
	// temperature is the base temperature for response generation.
	temperature float32
	// tempIncrement raises the temperature per analysis iteration.
	tempIncrement float32
	// maxTemperature caps the iteration temperature schedule.
	maxTemperature float32
	// maxTokens is the response budget for this stage.
	maxTokens int
	// name is the agent presentation name.
	name string
	logger *zap.Logger
}

// Option configures a stage agent.
type Option func(c *Config)

// WithClient sets the model client.
func WithClient(clt *components.ModelClient) Option {
	return func(c *Config) {
		c.client = clt
	}
}

// WithSystemPromptGenerator overrides the agent's default system prompt.
func WithSystemPromptGenerator(g *systemprompt.Generator) Option {
	return func(c *Config) {
		c.prompt = g
	}
}

// WithTemperature sets the base temperature.
func WithTemperature(temperature float32) Option {
	return func(c *Config) {
		c.temperature = temperature
	}
}

// WithTemperatureIncrement sets the per-iteration temperature step used by
// the research analyst.
func WithTemperatureIncrement(step float32) Option {
	return func(c *Config) {
		c.tempIncrement = step
	}
}

// WithMaxTemperature caps the analyst's temperature schedule.
func WithMaxTemperature(max float32) Option {
	return func(c *Config) {
		c.maxTemperature = max
	}
}

// WithMaxTokens sets the response token budget.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Config) {
		c.maxTokens = maxTokens
	}
}

// WithName sets the agent presentation name.
func WithName(name string) Option {
	return func(c *Config) {
		c.name = name
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.logger = l
	}
}

func (c *Config) apply(options []Option) {
	for _, opt := range options {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
}

// Name returns the agent presentation name.
func (c *Config) Name() string { return c.name }

// SystemPrompt returns the generated system prompt.
func (c *Config) SystemPrompt() string {
	if c.prompt == nil {
		return ""
	}
	return c.prompt.Generate()
}

// generate performs one guarded model call, prefixing the user prompt with
// the agent's system prompt.
func (c *Config) generate(ctx context.Context, userPrompt string, temperature float32) (string, error) {
	full := userPrompt
	if c.prompt != nil {
		if sys := c.prompt.Generate(); sys != "" {
			full = sys + "\n\n" + userPrompt
		}
	}
	resp, err := c.client.Call(ctx, &components.GenerateRequest{
		Prompt:      full,
		Temperature: temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}
