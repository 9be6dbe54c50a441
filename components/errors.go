package components

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failed model call.
type ErrorKind int

const (
	// KindQuotaExceeded is an explicit quota rejection from the upstream
	// API. Never retried locally; drives the QuotaGuard failure streak.
	KindQuotaExceeded ErrorKind = iota + 1
	// KindRateLimited means the local rate window or an active cooldown
	// refused the call before it was issued.
	KindRateLimited
	// KindTransient covers network and timeout failures, retried with
	// backoff before being surfaced.
	KindTransient
	// KindInvalid marks a malformed request or an unusable (e.g. empty)
	// response.
	KindInvalid
	// KindFatal covers credential problems and persistent non-quota
	// rejections; the run aborts.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindInvalid:
		return "invalid"
	case KindFatal:
		return "fatal"
	}
	return "unknown"
}

// CallError is a classified model-call failure. RetryAfter, when non-zero,
// hints how long the caller should wait before the call could succeed.
type CallError struct {
	Kind       ErrorKind
	RetryAfter time.Duration
	Err        error
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model call failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("model call failed (%s)", e.Kind)
}

func (e *CallError) Unwrap() error { return e.Err }

// AsCallError unwraps err into a *CallError when possible.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsRecoverable reports whether err is a quota or rate-limit failure the
// pipeline should pause on instead of aborting.
func IsRecoverable(err error) bool {
	if ce, ok := AsCallError(err); ok {
		return ce.Kind == KindQuotaExceeded || ce.Kind == KindRateLimited
	}
	return false
}
