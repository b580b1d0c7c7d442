package recommit

import (
	"time"
)

// Kind is the classification of an error produced during one attempt.
type Kind int

const (
	// KindRetryable marks a serialization/optimistic-concurrency conflict.
	// The database guarantees the transaction left no durable effect, so the
	// whole unit of work can safely be re-run from scratch.
	KindRetryable Kind = iota

	// KindResourceBroken marks a session or connection-layer failure.
	// The operation may be retried, but only on a freshly acquired session.
	KindResourceBroken

	// KindFatal marks errors that must never be retried: constraint
	// violations, syntax errors, application bugs.
	KindFatal
)

// String returns a human-readable string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindRetryable:
		return "retryable"
	case KindResourceBroken:
		return "resource-broken"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ErrorRecord is the classified form of a raw attempt error.
// Derived once by the error classifier and never mutated.
type ErrorRecord struct {
	Kind    Kind
	Message string
	Cause   error
}

// Attempt records one iteration of the executor loop.
// Err is nil for the attempt that succeeded.
type Attempt struct {
	Index     int
	StartedAt time.Time
	Err       *ErrorRecord
}

// History is the ordered, append-only sequence of attempts of a single
// execution. It is returned to the caller with every verdict, success or
// failure, for diagnostics.
type History []Attempt

// Last returns the most recent attempt, or nil for an empty history.
func (h History) Last() *Attempt {
	if len(h) == 0 {
		return nil
	}
	return &h[len(h)-1]
}

// Elapsed returns the wall-clock time between the first attempt and now.
// Returns zero for an empty history.
func (h History) Elapsed(now time.Time) time.Duration {
	if len(h) == 0 {
		return 0
	}
	return now.Sub(h[0].StartedAt)
}

// AttemptEvent is emitted through the executor's observability hook,
// one event per completed attempt. Err is nil when the attempt succeeded,
// and Delay is the backoff computed before the next attempt (zero when no
// further attempt follows).
type AttemptEvent struct {
	Index          int
	Classification Kind
	Delay          time.Duration
	Err            error
}
