package components

import "context"

// GenerateRequest is a single prompt/response exchange against the upstream
// model.
type GenerateRequest struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// LLMResponse is the vendor-neutral result of one exchange.
type LLMResponse struct {
	Text  string    `json:"text"`
	Model string    `json:"model,omitempty"`
	Usage *LLMUsage `json:"usage,omitempty"`
}

// LLMUsage carries provider-reported token counts.
type LLMUsage struct {
	InputTokens  int64 `json:"input_tokens,omitempty"`
	OutputTokens int64 `json:"output_tokens,omitempty"`
}

// Merge accumulates usage from another response.
func (u *LLMUsage) Merge(v *LLMUsage) {
	if v == nil {
		return
	}
	u.InputTokens += v.InputTokens
	u.OutputTokens += v.OutputTokens
}

// Provider issues one prompt/response exchange against an upstream model.
// Implementations translate vendor SDK failures into *CallError so the
// call layer can apply retry and quota policy without knowing the vendor.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *GenerateRequest) (*LLMResponse, error)
}
