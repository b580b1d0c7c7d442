package recommit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	err := executor.Execute(ctx, work)
//	if errors.Is(err, recommit.ErrBudgetExhausted) {
//	    // Queue for later instead of alerting: data is untouched.
//	}
var (
	// ErrInvalidConfig indicates the provided policy or configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBudgetExhausted indicates a retryable error persisted past the
	// configured attempt or elapsed-time budget. Distinct from a fatal
	// error: the transaction never applied, and a later re-submission of
	// the whole unit of work is legitimate.
	ErrBudgetExhausted = errors.New("retry budget exhausted")

	// ErrSessionAcquire indicates the session source failed to supply a
	// session for an attempt. Always classified resource-broken.
	ErrSessionAcquire = errors.New("session acquisition failed")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrUnknownScenario indicates the requested demo scenario does not exist.
	ErrUnknownScenario = errors.New("unknown scenario")
)

// FailureReason distinguishes the terminal verdicts of a failed execution.
type FailureReason int

const (
	// ReasonFatal: the last error was classified fatal and was never retried.
	ReasonFatal FailureReason = iota
	// ReasonBudgetExhausted: a retryable or resource-broken error outlived the budget.
	ReasonBudgetExhausted
	// ReasonCancelled: the caller cancelled the execution.
	ReasonCancelled
)

// String returns a human-readable string representation of the FailureReason.
func (r FailureReason) String() string {
	switch r {
	case ReasonFatal:
		return "fatal"
	case ReasonBudgetExhausted:
		return "budget-exhausted"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// FailureError is the terminal verdict of an execution that did not succeed.
// It always carries the complete attempt history; by the retryable-error
// contract no durable data was modified, whatever the reason.
type FailureError struct {
	Reason FailureReason

	// Last is the classified record of the final error. Nil only when the
	// execution was cancelled before any attempt failed.
	Last *ErrorRecord

	// History covers every attempt made, in order.
	History History

	cause error
}

// NewFailureError builds a terminal failure wrapping the given cause.
func NewFailureError(reason FailureReason, last *ErrorRecord, history History, cause error) *FailureError {
	return &FailureError{Reason: reason, Last: last, History: history, cause: cause}
}

func (e *FailureError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("execution %s after %d attempt(s)", e.Reason, len(e.History))
	}
	return fmt.Sprintf("execution %s after %d attempt(s): %v", e.Reason, len(e.History), e.cause)
}

// Unwrap exposes the final raw error so errors.Is/As keep working
// through the terminal verdict (e.g. against *pgconn.PgError or
// context.Canceled).
func (e *FailureError) Unwrap() error {
	return e.cause
}

// Is matches the budget-exhaustion sentinel so callers can write
// errors.Is(err, recommit.ErrBudgetExhausted) without unwrapping manually.
func (e *FailureError) Is(target error) bool {
	return target == ErrBudgetExhausted && e.Reason == ReasonBudgetExhausted
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var failure *FailureError
	if errors.As(err, &failure) {
		switch failure.Reason {
		case ReasonBudgetExhausted:
			return ExitBudgetExhausted
		case ReasonCancelled:
			return ExitCancelled
		}
		return ExitGeneralError
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrUnknownScenario):
		return ExitUsageError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ExitCancelled
	}

	// Check for common connection error patterns
	errStr := err.Error()
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
