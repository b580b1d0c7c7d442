package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/vvka-141/recommit/pkg/recommit"
)

// ExponentialBackoff implements exponential backoff with full randomized
// jitter. Jitter is not optional decoration here: many executors losing the
// same conflict back off at the same moment, and without randomization they
// retry in lockstep and collide again.
type ExponentialBackoff struct {
	// baseDelay is the pre-jitter delay for the first retry attempt
	baseDelay time.Duration

	// maxDelay caps any single delay, applied before jitter
	maxDelay time.Duration

	// multiplier is the factor by which delay increases (typically 2.0)
	multiplier float64

	// jitter spreads each delay uniformly within [d*(1-jitter), d*(1+jitter)]
	jitter float64

	// jitterFunc provides random values in [0, 1). Defaults to rand.Float64;
	// tests inject a deterministic function.
	jitterFunc func() float64
}

// BackoffOption is a functional option for configuring ExponentialBackoff.
type BackoffOption func(*ExponentialBackoff)

// WithBaseDelay sets the pre-jitter delay for the first retry attempt.
func WithBaseDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.baseDelay = d
	}
}

// WithMaxDelay sets the maximum delay between retry attempts.
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.maxDelay = d
	}
}

// WithMultiplier sets the factor by which delay increases between attempts.
func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.multiplier = m
	}
}

// WithJitter sets the jitter factor (0.0-1.0) randomizing each delay.
func WithJitter(j float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.jitter = j
	}
}

// WithJitterFunc sets a custom function for generating random jitter values.
func WithJitterFunc(f func() float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.jitterFunc = f
	}
}

// NewExponentialBackoff creates a backoff strategy from the given policy.
// Additional configuration can be provided via functional options.
//
// Example:
//
//	backoff := retry.NewExponentialBackoff(recommit.DefaultPolicy(),
//	    retry.WithBaseDelay(20*time.Millisecond),
//	    retry.WithJitterFunc(func() float64 { return 0.5 }),
//	)
func NewExponentialBackoff(policy recommit.Policy, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		baseDelay:  policy.BaseDelay,
		maxDelay:   policy.MaxDelay,
		multiplier: policy.Multiplier,
		jitter:     policy.JitterFactor,
		jitterFunc: nil, // Will use default in NextDelay
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// NextDelay calculates the delay before the given retry.
// retry is zero-indexed: 0 is the wait before the second attempt overall.
func (b *ExponentialBackoff) NextDelay(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}

	delay := float64(b.baseDelay) * math.Pow(b.multiplier, float64(retry))

	// Exponentiation overflows float64 long after it passes any sane cap;
	// clamp both the overflowed and the merely oversized results to maxDelay.
	if b.maxDelay > 0 && (math.IsInf(delay, 1) || math.IsNaN(delay) || delay > float64(b.maxDelay)) {
		delay = float64(b.maxDelay)
	}

	if b.jitter > 0 && delay > 0 {
		jitterFunc := b.jitterFunc
		if jitterFunc == nil {
			// Real randomness for production use. Tests should set
			// jitterFunc to a deterministic function.
			jitterFunc = rand.Float64
		}

		// Map [0,1) to [-1,1) and scale: uniform over [d*(1-j), d*(1+j)]
		offset := (jitterFunc() - 0.5) * 2.0
		delay *= 1.0 + b.jitter*offset
	}

	// Jitter may push past the cap; the cap wins.
	if b.maxDelay > 0 && delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// BaseDelay returns the pre-jitter first-retry delay for tests and debugging.
func (b *ExponentialBackoff) BaseDelay() time.Duration {
	return b.baseDelay
}

// MaxDelay returns the delay cap for tests and debugging.
func (b *ExponentialBackoff) MaxDelay() time.Duration {
	return b.maxDelay
}

// Multiplier returns the backoff multiplier for tests and debugging.
func (b *ExponentialBackoff) Multiplier() float64 {
	return b.multiplier
}

// Jitter returns the jitter factor for tests and debugging.
func (b *ExponentialBackoff) Jitter() float64 {
	return b.jitter
}
