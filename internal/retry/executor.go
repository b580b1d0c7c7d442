package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/vvka-141/recommit/pkg/recommit"
)

// UnitOfWork is one complete logical transaction: begin through commit,
// executed against a single freshly acquired session. On error return it
// must have left no durable effect beyond what the database's own
// transaction abort already undoes.
type UnitOfWork[S any] func(ctx context.Context, session S) error

// Executor orchestrates retry attempts with session acquisition, error
// classification, budget enforcement and jittered backoff.
//
// Thread Safety:
// The Executor is safe for concurrent use when calling Execute(): each call
// owns its attempt history, its sessions and its backoff timeline, and the
// configured collaborators are shared read-only. WithOnAttempt() returns a
// NEW instance with the hook configured; the original remains unchanged.
type Executor[S any] struct {
	source     recommit.SessionSource[S]
	classifier recommit.ErrorClassifier
	strategy   recommit.BackoffStrategy
	budget     Budget
	onAttempt  func(recommit.AttemptEvent)
}

// NewExecutor creates a retry executor over the given session source and
// policy. Panics if source or classifier is nil.
func NewExecutor[S any](
	source recommit.SessionSource[S],
	classifier recommit.ErrorClassifier,
	policy recommit.Policy,
	opts ...BackoffOption,
) *Executor[S] {
	if source == nil {
		panic("source cannot be nil")
	}
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	return &Executor[S]{
		source:     source,
		classifier: classifier,
		strategy:   NewExponentialBackoff(policy, opts...),
		budget:     BudgetFromPolicy(policy),
	}
}

// NewExecutorWithStrategy creates an executor with an explicit backoff
// strategy instead of one derived from a policy.
func NewExecutorWithStrategy[S any](
	source recommit.SessionSource[S],
	classifier recommit.ErrorClassifier,
	strategy recommit.BackoffStrategy,
	budget Budget,
) *Executor[S] {
	if source == nil {
		panic("source cannot be nil")
	}
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor[S]{
		source:     source,
		classifier: classifier,
		strategy:   strategy,
		budget:     budget,
	}
}

// WithOnAttempt returns a new Executor with the specified observability hook.
// The hook receives one event per completed attempt: index, classification,
// and the backoff delay computed before the next attempt.
//
// This method does NOT modify the receiver; it returns a new instance so
// concurrent callers can configure hooks independently.
func (e *Executor[S]) WithOnAttempt(hook func(recommit.AttemptEvent)) *Executor[S] {
	clone := *e
	clone.onAttempt = hook
	return &clone
}

// Execute runs the unit of work until it succeeds, fails terminally, or the
// caller cancels. Exactly one verdict is produced per call:
//
//   - nil error: the unit of work committed; the history ends in a
//     successful attempt.
//   - *recommit.FailureError with ReasonFatal: the last error was not
//     retryable and propagated on first occurrence.
//   - *recommit.FailureError with ReasonBudgetExhausted: a retryable error
//     outlived the attempt or elapsed budget.
//   - *recommit.FailureError with ReasonCancelled: ctx was cancelled before
//     an attempt or during a backoff wait.
//
// The returned history covers every attempt in both cases.
func (e *Executor[S]) Execute(ctx context.Context, work UnitOfWork[S]) (recommit.History, error) {
	var history recommit.History

	for {
		// Cancellation check before issuing a new attempt.
		if err := ctx.Err(); err != nil {
			var lastRecord *recommit.ErrorRecord
			if last := history.Last(); last != nil {
				lastRecord = last.Err
			}
			return history, recommit.NewFailureError(recommit.ReasonCancelled, lastRecord, history, err)
		}

		started := time.Now()
		err := e.attempt(ctx, work)
		if err == nil {
			history = append(history, recommit.Attempt{Index: len(history), StartedAt: started})
			e.emit(recommit.AttemptEvent{Index: len(history) - 1})
			return history, nil
		}

		kind := e.classifier.Classify(err)
		record := &recommit.ErrorRecord{Kind: kind, Message: err.Error(), Cause: err}
		history = append(history, recommit.Attempt{Index: len(history), StartedAt: started, Err: record})

		if kind == recommit.KindFatal {
			e.emit(recommit.AttemptEvent{Index: len(history) - 1, Classification: kind, Err: err})
			return history, recommit.NewFailureError(recommit.ReasonFatal, record, history, err)
		}

		// Retryable or resource-broken: consult the budget before backing off.
		if !e.budget.ShouldContinue(history, time.Now()) {
			e.emit(recommit.AttemptEvent{Index: len(history) - 1, Classification: kind, Err: err})
			failure := recommit.NewFailureError(recommit.ReasonBudgetExhausted, record, history,
				fmt.Errorf("%w: %w", recommit.ErrBudgetExhausted, err))
			return history, failure
		}

		// Delay before retry n uses zero-based retry index n-1, so the first
		// retry waits the base delay and growth starts from the second.
		delay := e.strategy.NextDelay(len(history) - 1)
		e.emit(recommit.AttemptEvent{Index: len(history) - 1, Classification: kind, Delay: delay, Err: err})

		// Interruptible wait scoped to this one execution.
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return history, recommit.NewFailureError(recommit.ReasonCancelled, record, history, ctx.Err())
		case <-timer.C:
		}
	}
}

// attempt acquires one fresh session, runs the unit of work against it, and
// disposes of the session on every path: released when still usable,
// discarded when the error says the session may be broken, discarded and
// re-panicked when the unit of work panics.
func (e *Executor[S]) attempt(ctx context.Context, work UnitOfWork[S]) error {
	session, err := e.source.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", recommit.ErrSessionAcquire, err)
	}

	completed := false
	var workErr error
	defer func() {
		if !completed {
			// Unit-of-work panic: the session state is unknowable.
			e.source.Discard(session)
			return
		}
		if workErr != nil && e.classifier.Classify(workErr) == recommit.KindResourceBroken {
			e.source.Discard(session)
			return
		}
		e.source.Release(session)
	}()

	workErr = work(ctx, session)
	completed = true
	return workErr
}

func (e *Executor[S]) emit(event recommit.AttemptEvent) {
	if e.onAttempt != nil {
		e.onAttempt(event)
	}
}

// Execute runs a value-returning unit of work through the executor. The
// zero value of T is returned on any terminal failure.
func Execute[S, T any](
	ctx context.Context,
	e *Executor[S],
	work func(ctx context.Context, session S) (T, error),
) (T, recommit.History, error) {
	var out T
	history, err := e.Execute(ctx, func(ctx context.Context, session S) error {
		value, workErr := work(ctx, session)
		if workErr != nil {
			return workErr
		}
		out = value
		return nil
	})
	if err != nil {
		var zero T
		return zero, history, err
	}
	return out, history, nil
}
