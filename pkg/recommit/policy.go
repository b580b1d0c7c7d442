package recommit

import (
	"errors"
	"fmt"
	"time"
)

// Policy is the immutable retry configuration consumed by the executor.
// Construct it once and share it read-only across concurrent executions.
type Policy struct {
	// MaxAttempts bounds the total number of attempts, first attempt included.
	MaxAttempts int

	// BaseDelay is the delay before the first retry, prior to jitter.
	BaseDelay time.Duration

	// Multiplier is the exponential growth factor between retries (>= 1).
	Multiplier float64

	// JitterFactor randomizes each delay uniformly within
	// [delay*(1-JitterFactor), delay*(1+JitterFactor)]. Range [0, 1].
	JitterFactor float64

	// MaxDelay caps any single wait.
	MaxDelay time.Duration

	// MaxElapsed, when non-zero, bounds the wall-clock time of the whole
	// execution measured from the start of the first attempt.
	MaxElapsed time.Duration
}

// DefaultPolicy returns the retry policy used when nothing is configured:
// bounded attempts, tens-of-milliseconds base delay, doubling with half
// jitter, worst-case single wait of two seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  DefaultMaxAttempts,
		BaseDelay:    DefaultBaseDelay,
		Multiplier:   DefaultMultiplier,
		JitterFactor: DefaultJitterFactor,
		MaxDelay:     DefaultMaxDelay,
	}
}

// Validate checks the policy for nonsensical values.
// It returns a multi-error if multiple validation failures occur.
func (p Policy) Validate() error {
	var errs []error

	if p.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("MaxAttempts must be positive: %w", ErrInvalidConfig))
	}
	if p.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("BaseDelay cannot be negative: %w", ErrInvalidConfig))
	}
	if p.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("Multiplier must be >= 1: %w", ErrInvalidConfig))
	}
	if p.JitterFactor < 0 || p.JitterFactor > 1 {
		errs = append(errs, fmt.Errorf("JitterFactor must be within [0, 1]: %w", ErrInvalidConfig))
	}
	if p.MaxDelay < 0 {
		errs = append(errs, fmt.Errorf("MaxDelay cannot be negative: %w", ErrInvalidConfig))
	}
	if p.MaxElapsed < 0 {
		errs = append(errs, fmt.Errorf("MaxElapsed cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}
