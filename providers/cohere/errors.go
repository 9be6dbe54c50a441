package cohere

import (
	"context"
	"errors"

	cohere "github.com/cohere-ai/cohere-go/v2"
	core "github.com/cohere-ai/cohere-go/v2/core"

	"github.com/mara-ai/mara/components"
)

// classify maps SDK failures onto the call-error taxonomy using the typed
// errors the generated client exposes.
func classify(err error) *components.CallError {
	kind := components.KindFatal
	var (
		tooMany     *cohere.TooManyRequestsError
		badRequest  *cohere.BadRequestError
		serverErr   *cohere.InternalServerError
		unavailable *cohere.ServiceUnavailableError
		apiErr      *core.APIError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = components.KindTransient
	case errors.As(err, &tooMany):
		kind = components.KindQuotaExceeded
	case errors.As(err, &badRequest):
		kind = components.KindInvalid
	case errors.As(err, &serverErr), errors.As(err, &unavailable):
		kind = components.KindTransient
	case errors.As(err, &apiErr):
		switch {
		case apiErr.StatusCode == 429:
			kind = components.KindQuotaExceeded
		case apiErr.StatusCode >= 500:
			kind = components.KindTransient
		case apiErr.StatusCode == 400:
			kind = components.KindInvalid
		}
	}
	return &components.CallError{Kind: kind, Err: err}
}
