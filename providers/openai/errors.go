package openai

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mara-ai/mara/components"
)

// classify maps SDK failures onto the call-error taxonomy. OpenAI uses 429
// both for hard quota exhaustion (insufficient_quota) and for short-term
// throttling.
func classify(err error) *components.CallError {
	kind := components.KindFatal
	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = components.KindTransient
	case errors.As(err, &apiErr):
		kind = classifyStatus(apiErr.HTTPStatusCode, apiErr.Type)
	case errors.As(err, &reqErr):
		kind = classifyStatus(reqErr.HTTPStatusCode, "")
	default:
		if msg := strings.ToLower(err.Error()); strings.Contains(msg, "connection") ||
			strings.Contains(msg, "timeout") {
			kind = components.KindTransient
		}
	}
	return &components.CallError{Kind: kind, Err: err}
}

func classifyStatus(code int, errType string) components.ErrorKind {
	switch {
	case code == 429 && errType == "insufficient_quota":
		return components.KindQuotaExceeded
	case code == 429:
		return components.KindRateLimited
	case code >= 500:
		return components.KindTransient
	case code == 400:
		return components.KindInvalid
	}
	return components.KindFatal
}
