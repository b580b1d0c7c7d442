package retry

import (
	"time"

	"github.com/vvka-141/recommit/pkg/recommit"
)

// Budget bounds how long one execution may keep retrying. Retryable and
// resource-broken errors draw from the same budget; fatal errors bypass it
// entirely. Pure given its inputs; the executor is the only caller.
type Budget struct {
	// MaxAttempts bounds the total attempt count, first attempt included.
	// Zero or negative means unbounded.
	MaxAttempts int

	// MaxElapsed, when non-zero, bounds wall-clock time measured from the
	// start of the first attempt.
	MaxElapsed time.Duration
}

// BudgetFromPolicy extracts the budget portion of a retry policy.
func BudgetFromPolicy(policy recommit.Policy) Budget {
	return Budget{
		MaxAttempts: policy.MaxAttempts,
		MaxElapsed:  policy.MaxElapsed,
	}
}

// ShouldContinue reports whether another attempt is allowed given the
// attempts already recorded in history.
func (b Budget) ShouldContinue(history recommit.History, now time.Time) bool {
	if b.MaxAttempts > 0 && len(history) >= b.MaxAttempts {
		return false
	}
	if b.MaxElapsed > 0 && len(history) > 0 && history.Elapsed(now) > b.MaxElapsed {
		return false
	}
	return true
}
