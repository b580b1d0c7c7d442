package recommit

import (
	"context"
	"time"
)

// ErrorClassifier maps a raw error from the resource layer onto the
// retry taxonomy. Implementations must be pure and safe for concurrent use.
type ErrorClassifier interface {
	// Classify returns the Kind for the given error.
	Classify(err error) Kind
}

// BackoffStrategy calculates the delay before the next retry attempt.
type BackoffStrategy interface {
	// NextDelay returns the duration to wait before the next attempt.
	// retry is zero-indexed (0 = first retry, 1 = second retry, etc.)
	NextDelay(retry int) time.Duration
}

// SessionSource supplies one fresh transactional session per attempt.
// The executor never reuses a session across attempts: every session it
// acquires is handed back through exactly one of Release or Discard
// before the next attempt starts.
//
// S is opaque to the executor; a pgxpool-backed source uses *pgxpool.Conn,
// tests use whatever stub they like.
type SessionSource[S any] interface {
	// Acquire obtains a fresh session. An acquisition failure is treated
	// as a resource-broken attempt without invoking the unit of work.
	Acquire(ctx context.Context) (S, error)

	// Release hands a usable session back to the source.
	Release(session S)

	// Discard marks a session broken so the source will not reuse it.
	Discard(session S)
}
