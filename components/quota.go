package components

import (
	"sync"
	"time"
)

// DecisionKind is the outcome of a QuotaGuard admission check.
type DecisionKind int

const (
	// DecisionAllow admits the call immediately.
	DecisionAllow DecisionKind = iota
	// DecisionWait refuses the call until the oldest request in the rate
	// window ages out; Decision.Wait carries the duration.
	DecisionWait
	// DecisionCooldown refuses the call while a failure cooldown is
	// active; Decision.Wait carries the remaining duration.
	DecisionCooldown
)

// Decision is the result of Admit.
type Decision struct {
	Kind DecisionKind
	Wait time.Duration
}

const (
	defaultWindow            = time.Minute
	defaultMaxRequests       = 60
	defaultCooldownThreshold = 3
	defaultCooldown          = 5 * time.Minute
)

// QuotaGuard tracks call volume inside a sliding window and consecutive
// quota failures against the upstream API. It is the only state shared
// across stages and may also be shared across pipeline runs, so all access
// is serialized by a mutex.
type QuotaGuard struct {
	mu                sync.Mutex
	window            time.Duration
	maxRequests       int
	cooldownThreshold int
	cooldown          time.Duration
	stamps            []time.Time
	failures          int
	cooldownUntil     time.Time
	now               func() time.Time
}

// QuotaGuardOption configures a QuotaGuard.
type QuotaGuardOption func(*QuotaGuard)

// WithWindow sets the sliding rate window.
func WithWindow(d time.Duration) QuotaGuardOption {
	return func(g *QuotaGuard) {
		g.window = d
	}
}

// WithMaxRequests sets the maximum requests admitted per window.
func WithMaxRequests(n int) QuotaGuardOption {
	return func(g *QuotaGuard) {
		g.maxRequests = n
	}
}

// WithCooldownThreshold sets the consecutive quota-failure count that
// triggers a cooldown.
func WithCooldownThreshold(n int) QuotaGuardOption {
	return func(g *QuotaGuard) {
		g.cooldownThreshold = n
	}
}

// WithCooldown sets the cooldown duration.
func WithCooldown(d time.Duration) QuotaGuardOption {
	return func(g *QuotaGuard) {
		g.cooldown = d
	}
}

// WithClock replaces the time source. Tests use this to avoid real waits.
func WithClock(now func() time.Time) QuotaGuardOption {
	return func(g *QuotaGuard) {
		g.now = now
	}
}

// NewQuotaGuard returns a guard with the default 60 requests / 60 s window
// and a 5 minute cooldown after 3 consecutive quota failures.
func NewQuotaGuard(options ...QuotaGuardOption) *QuotaGuard {
	g := &QuotaGuard{
		window:            defaultWindow,
		maxRequests:       defaultMaxRequests,
		cooldownThreshold: defaultCooldownThreshold,
		cooldown:          defaultCooldown,
		now:               time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Admit decides whether a call may proceed now. An allowed call is recorded
// in the rate window immediately, so Admit must be called exactly once per
// upstream attempt.
func (g *QuotaGuard) Admit() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if !g.cooldownUntil.IsZero() {
		if now.Before(g.cooldownUntil) {
			return Decision{Kind: DecisionCooldown, Wait: g.cooldownUntil.Sub(now)}
		}
		// Cooldown expired: clear it and reset the failure streak.
		g.cooldownUntil = time.Time{}
		g.failures = 0
	}
	g.prune(now)
	if g.maxRequests > 0 && len(g.stamps) >= g.maxRequests {
		return Decision{Kind: DecisionWait, Wait: g.stamps[0].Add(g.window).Sub(now)}
	}
	g.stamps = append(g.stamps, now)
	return Decision{Kind: DecisionAllow}
}

// RecordSuccess resets the consecutive-failure streak.
func (g *QuotaGuard) RecordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = 0
}

// RecordFailure notes a failed call. Only quota failures advance the
// streak; crossing the threshold starts a cooldown.
func (g *QuotaGuard) RecordFailure(kind ErrorKind) {
	if kind != KindQuotaExceeded {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures++
	if g.failures >= g.cooldownThreshold {
		g.cooldownUntil = g.now().Add(g.cooldown)
	}
}

// CooldownRemaining reports the active cooldown, if any.
func (g *QuotaGuard) CooldownRemaining() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if g.cooldownUntil.IsZero() || !now.Before(g.cooldownUntil) {
		return 0, false
	}
	return g.cooldownUntil.Sub(now), true
}

// ConsecutiveFailures returns the current quota-failure streak.
func (g *QuotaGuard) ConsecutiveFailures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures
}

// prune drops window entries older than window. Callers hold the lock.
func (g *QuotaGuard) prune(now time.Time) {
	cutoff := now.Add(-g.window)
	idx := 0
	for idx < len(g.stamps) && !g.stamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		g.stamps = append(g.stamps[:0], g.stamps[idx:]...)
	}
}
