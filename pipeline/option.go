package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/mara-ai/mara/components"
)

// Option configures an Orchestrator.
type Option func(o *Orchestrator)

// WithHooks registers progress callbacks.
func WithHooks(hooks Hooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithSleep replaces the pause wait implementation. Tests use this to
// resume instantly.
func WithSleep(fn components.SleepFunc) Option {
	return func(o *Orchestrator) {
		o.sleep = fn
	}
}

// WithPauseInterval sets the pause duration used when a quota failure
// carries no resume hint.
func WithPauseInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.pauseInterval = d
	}
}
