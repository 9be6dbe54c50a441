package components

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxWait     = 2 * time.Second
)

// SleepFunc waits for d or until ctx is cancelled. Tests substitute a
// recording no-op.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ModelClient issues prompt/response exchanges against a Provider, routing
// every call through a QuotaGuard and retrying transient failures with
// exponential backoff. Quota rejections are never retried locally; they are
// reported to the guard and surfaced so the orchestrator can pause the run.
type ModelClient struct {
	provider    Provider
	guard       *QuotaGuard
	maxAttempts int
	baseDelay   time.Duration
	maxWait     time.Duration
	blockOnWait bool
	logger      *zap.Logger
	sleep       SleepFunc
}

// ClientOption configures a ModelClient.
type ClientOption func(*ModelClient)

// WithMaxAttempts caps attempts for transient failures (default 3).
func WithMaxAttempts(n int) ClientOption {
	return func(c *ModelClient) {
		c.maxAttempts = n
	}
}

// WithBaseDelay sets the initial backoff delay, doubled per attempt.
func WithBaseDelay(d time.Duration) ClientOption {
	return func(c *ModelClient) {
		c.baseDelay = d
	}
}

// WithMaxWait bounds how long a single rate-window wait may be absorbed
// before the call fails with KindRateLimited instead.
func WithMaxWait(d time.Duration) ClientOption {
	return func(c *ModelClient) {
		c.maxWait = d
	}
}

// WithBlocking controls whether short rate-window waits are absorbed by
// sleeping (true) or surfaced immediately (false). Interactive callers
// prefer surfaced waits.
func WithBlocking(block bool) ClientOption {
	return func(c *ModelClient) {
		c.blockOnWait = block
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *ModelClient) {
		c.logger = l
	}
}

// WithSleep replaces the wait implementation.
func WithSleep(fn SleepFunc) ClientOption {
	return func(c *ModelClient) {
		c.sleep = fn
	}
}

// NewModelClient wires a provider to a quota guard.
func NewModelClient(provider Provider, guard *QuotaGuard, options ...ClientOption) *ModelClient {
	c := &ModelClient{
		provider:    provider,
		guard:       guard,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxWait:     defaultMaxWait,
		blockOnWait: true,
		logger:      zap.NewNop(),
		sleep:       sleepContext,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Call performs one exchange. The returned error, when not a bare context
// error, is always a *CallError.
func (c *ModelClient) Call(ctx context.Context, req *GenerateRequest) (*LLMResponse, error) {
	for attempt := 0; ; attempt++ {
		if err := c.admit(ctx); err != nil {
			return nil, err
		}
		resp, err := c.provider.Generate(ctx, req)
		if err == nil {
			c.guard.RecordSuccess()
			if resp == nil || strings.TrimSpace(resp.Text) == "" {
				return nil, &CallError{Kind: KindInvalid, Err: errors.New("empty response from model")}
			}
			return resp, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		ce, ok := AsCallError(err)
		if !ok {
			ce = &CallError{Kind: KindFatal, Err: err}
		}
		c.guard.RecordFailure(ce.Kind)
		switch ce.Kind {
		case KindQuotaExceeded:
			// Not retried locally. Attach the guard's cooldown as the
			// resume hint when the provider gave none.
			if ce.RetryAfter == 0 {
				if d, active := c.guard.CooldownRemaining(); active {
					ce.RetryAfter = d
				}
			}
			c.logger.Warn("quota exceeded",
				zap.String("provider", c.provider.Name()),
				zap.Duration("retry_after", ce.RetryAfter))
			return nil, ce
		case KindTransient:
			if attempt >= c.maxAttempts-1 {
				return nil, ce
			}
			delay := c.baseDelay << attempt
			c.logger.Warn("transient failure, backing off",
				zap.String("provider", c.provider.Name()),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(ce.Err))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		default:
			return nil, ce
		}
	}
}

// admit loops on the guard until the call is allowed or the wait must be
// surfaced to the caller.
func (c *ModelClient) admit(ctx context.Context) error {
	for {
		d := c.guard.Admit()
		switch d.Kind {
		case DecisionAllow:
			return nil
		case DecisionWait:
			if !c.blockOnWait || d.Wait > c.maxWait {
				return &CallError{
					Kind:       KindRateLimited,
					RetryAfter: d.Wait,
					Err:        fmt.Errorf("rate window full, retry in %s", d.Wait),
				}
			}
			c.logger.Debug("rate window full, waiting", zap.Duration("wait", d.Wait))
			if err := c.sleep(ctx, d.Wait); err != nil {
				return err
			}
		case DecisionCooldown:
			return &CallError{
				Kind:       KindRateLimited,
				RetryAfter: d.Wait,
				Err:        fmt.Errorf("quota cooldown active, retry in %s", d.Wait),
			}
		}
	}
}
