package retry

import (
	"context"

	"github.com/vvka-141/recommit/pkg/recommit"
)

// NopSource is a SessionSource for operations that manage their own
// resources, such as connection establishment where the "session" does not
// exist until the operation succeeds.
type NopSource struct{}

// Acquire returns an empty session token.
func (NopSource) Acquire(ctx context.Context) (struct{}, error) {
	return struct{}{}, nil
}

// Release is a no-op.
func (NopSource) Release(struct{}) {}

// Discard is a no-op.
func (NopSource) Discard(struct{}) {}

// NewFuncExecutor creates an executor for plain retryable functions with no
// session lifecycle. Used by connectors to retry connection establishment.
func NewFuncExecutor(
	classifier recommit.ErrorClassifier,
	policy recommit.Policy,
	opts ...BackoffOption,
) *Executor[struct{}] {
	return NewExecutor[struct{}](NopSource{}, classifier, policy, opts...)
}

// Do runs op through a session-less executor, discarding the history.
func Do(ctx context.Context, e *Executor[struct{}], op func(ctx context.Context) error) error {
	_, err := e.Execute(ctx, func(ctx context.Context, _ struct{}) error {
		return op(ctx)
	})
	return err
}
