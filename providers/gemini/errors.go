package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/mara-ai/mara/components"
)

// classify maps SDK failures onto the call-error taxonomy. Gemini reports
// quota exhaustion as HTTP 429 with a RESOURCE_EXHAUSTED status.
func classify(err error) *components.CallError {
	kind := components.KindFatal
	var apiErr *googleapi.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = components.KindTransient
	case errors.As(err, &apiErr):
		switch {
		case apiErr.Code == 429:
			kind = components.KindQuotaExceeded
		case apiErr.Code >= 500:
			kind = components.KindTransient
		case apiErr.Code == 400:
			kind = components.KindInvalid
		}
	default:
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "resource_exhausted"), strings.Contains(msg, "quota"):
			kind = components.KindQuotaExceeded
		case strings.Contains(msg, "rate limit"):
			kind = components.KindRateLimited
		case strings.Contains(msg, "unavailable"), strings.Contains(msg, "timeout"),
			strings.Contains(msg, "connection"):
			kind = components.KindTransient
		}
	}
	return &components.CallError{Kind: kind, Err: err}
}
