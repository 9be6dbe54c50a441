package anthropic

import (
	"context"
	"errors"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/mara-ai/mara/components"
)

// classify maps SDK failures onto the call-error taxonomy. The API reports
// throttling as rate_limit_error and transient overload as overloaded_error.
func classify(err error) *components.CallError {
	kind := components.KindFatal
	var (
		apiErr *anthropic.APIError
		reqErr *anthropic.RequestError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = components.KindTransient
	case errors.As(err, &apiErr):
		switch {
		case apiErr.IsRateLimitErr():
			kind = components.KindRateLimited
		case apiErr.IsOverloadedErr(), apiErr.IsApiErr():
			kind = components.KindTransient
		case apiErr.IsInvalidRequestErr():
			kind = components.KindInvalid
		}
	case errors.As(err, &reqErr):
		if reqErr.StatusCode >= 500 || reqErr.StatusCode == 429 {
			kind = components.KindTransient
		}
	}
	return &components.CallError{Kind: kind, Err: err}
}
