package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/recommit/pkg/recommit"
)

// stubSource hands out integer session ids and counts lifecycle calls.
type stubSource struct {
	mu          sync.Mutex
	next        int
	acquired    int
	released    int
	discarded   int
	failAcquire int // fail the first N acquisitions
}

func (s *stubSource) Acquire(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquired < s.failAcquire {
		s.acquired++
		return 0, errors.New("no route to host")
	}
	s.acquired++
	s.next++
	return s.next, nil
}

func (s *stubSource) Release(int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
}

func (s *stubSource) Discard(int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded++
}

func (s *stubSource) disposed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released + s.discarded
}

func fastPolicy(maxAttempts int) recommit.Policy {
	return recommit.Policy{
		MaxAttempts:  maxAttempts,
		BaseDelay:    time.Millisecond,
		Multiplier:   2.0,
		JitterFactor: 0,
		MaxDelay:     10 * time.Millisecond,
	}
}

func serializationFailure() error {
	return &pgconn.PgError{Code: "40001", Message: "restart transaction"}
}

func TestExecutor_SuccessOnFirstAttempt(t *testing.T) {
	source := &stubSource{}
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(5))

	invocations := 0
	history, err := executor.Execute(context.Background(), func(ctx context.Context, session int) error {
		invocations++
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if invocations != 1 {
		t.Errorf("expected 1 invocation, got %d", invocations)
	}
	if len(history) != 1 || history[0].Err != nil {
		t.Errorf("expected history of one successful attempt, got %+v", history)
	}
}

func TestExecutor_SuccessAfterConflicts(t *testing.T) {
	source := &stubSource{}
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(5))

	invocations := 0
	history, err := executor.Execute(context.Background(), func(ctx context.Context, session int) error {
		invocations++
		if invocations < 4 {
			return serializationFailure()
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if invocations != 4 {
		t.Errorf("expected 4 invocations, got %d", invocations)
	}
	if len(history) != 4 {
		t.Errorf("expected 4 attempts in history, got %d", len(history))
	}
	for i, attempt := range history {
		if attempt.Index != i {
			t.Errorf("attempt %d has index %d", i, attempt.Index)
		}
	}
	if history.Last().Err != nil {
		t.Error("final attempt should carry no error")
	}
}

func TestExecutor_FreshSessionPerAttempt(t *testing.T) {
	source := &stubSource{}
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(5))

	var sessions []int
	_, err := executor.Execute(context.Background(), func(ctx context.Context, session int) error {
		sessions = append(sessions, session)
		if len(sessions) < 3 {
			return serializationFailure()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	seen := map[int]bool{}
	for _, id := range sessions {
		if seen[id] {
			t.Fatalf("session %d reused across attempts", id)
		}
		seen[id] = true
	}
}

func TestExecutor_FatalErrorNoRetry(t *testing.T) {
	source := &stubSource{}
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(5))

	fatal := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	invocations := 0
	history, err := executor.Execute(context.Background(), func(ctx context.Context, session int) error {
		invocations++
		return fatal
	})

	if invocations != 1 {
		t.Errorf("expected 1 invocation for fatal error, got %d", invocations)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 attempt in history, got %d", len(history))
	}

	var failure *recommit.FailureError
	if !errors.As(err, &failure) {
		t.Fatalf("expected FailureError, got %v", err)
	}
	if failure.Reason != recommit.ReasonFatal {
		t.Errorf("expected fatal reason, got %v", failure.Reason)
	}

	// The raw database error stays reachable through the verdict.
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		t.Errorf("expected wrapped PgError 23505, got %v", err)
	}
	if errors.Is(err, recommit.ErrBudgetExhausted) {
		t.Error("fatal failure must not match ErrBudgetExhausted")
	}
}

func TestExecutor_BudgetExhausted(t *testing.T) {
	source := &stubSource{}
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(5))

	invocations := 0
	history, err := executor.Execute(context.Background(), func(ctx context.Context, session int) error {
		invocations++
		return serializationFailure()
	})

	if invocations != 5 {
		t.Errorf("expected exactly maxAttempts invocations, got %d", invocations)
	}
	if len(history) != 5 {
		t.Errorf("expected history length 5, got %d", len(history))
	}
	if !errors.Is(err, recommit.ErrBudgetExhausted) {
		t.Errorf("expected ErrBudgetExhausted, got %v", err)
	}

	var failure *recommit.FailureError
	if !errors.As(err, &failure) {
		t.Fatalf("expected FailureError, got %v", err)
	}
	if failure.Reason != recommit.ReasonBudgetExhausted {
		t.Errorf("expected budget-exhausted reason, got %v", failure.Reason)
	}
	if failure.Last == nil || failure.Last.Kind != recommit.KindRetryable {
		t.Errorf("expected retryable last record, got %+v", failure.Last)
	}
}

func TestExecutor_MaxElapsedBudget(t *testing.T) {
	source := &stubSource{}
	policy := fastPolicy(1000)
	policy.MaxElapsed = 20 * time.Millisecond
	executor := NewExecutor[int](source, NewPgErrorClassifier(), policy)

	_, err := executor.Execute(context.Background(), func(ctx context.Context, session int) error {
		time.Sleep(10 * time.Millisecond)
		return serializationFailure()
	})

	if !errors.Is(err, recommit.ErrBudgetExhausted) {
		t.Errorf("expected elapsed budget exhaustion, got %v", err)
	}
}

func TestExecutor_AcquisitionFailureIsResourceBroken(t *testing.T) {
	source := &stubSource{failAcquire: 2}
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(5))

	invocations := 0
	history, err := executor.Execute(context.Background(), func(ctx context.Context, session int) error {
		invocations++
		return nil
	})

	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	// The unit of work must not run for the two failed acquisitions.
	if invocations != 1 {
		t.Errorf("expected 1 invocation, got %d", invocations)
	}
	if len(history) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(history))
	}
	for _, attempt := range history[:2] {
		if attempt.Err == nil || attempt.Err.Kind != recommit.KindResourceBroken {
			t.Errorf("expected resource-broken record, got %+v", attempt.Err)
		}
	}
}

func TestExecutor_NoSessionLeaks(t *testing.T) {
	tests := []struct {
		name string
		work func(invocation int) error
	}{
		{"always succeeds", func(int) error { return nil }},
		{"conflicts then succeeds", func(n int) error {
			if n < 3 {
				return serializationFailure()
			}
			return nil
		}},
		{"always conflicts", func(int) error { return serializationFailure() }},
		{"fatal", func(int) error { return &pgconn.PgError{Code: "42601"} }},
		{"broken connection", func(int) error { return errors.New("conn closed") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &stubSource{}
			executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(4))

			invocations := 0
			_, _ = executor.Execute(context.Background(), func(ctx context.Context, session int) error {
				invocations++
				return tt.work(invocations)
			})

			source.mu.Lock()
			acquired := source.acquired
			source.mu.Unlock()
			if disposed := source.disposed(); disposed != acquired {
				t.Errorf("%d sessions acquired but %d disposed", acquired, disposed)
			}
		})
	}
}

func TestExecutor_PanicDiscardsSession(t *testing.T) {
	source := &stubSource{}
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(4))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate")
		}
		if source.disposed() != 1 {
			t.Errorf("expected panicking attempt's session disposed, got %d", source.disposed())
		}
		if source.discarded != 1 {
			t.Errorf("expected session discarded on panic, got released")
		}
	}()

	_, _ = executor.Execute(context.Background(), func(ctx context.Context, session int) error {
		panic("unit of work exploded")
	})
}

func TestExecutor_BrokenSessionDiscardedHealthyReleased(t *testing.T) {
	source := &stubSource{}
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(4))

	invocations := 0
	_, err := executor.Execute(context.Background(), func(ctx context.Context, session int) error {
		invocations++
		if invocations == 1 {
			return errors.New("server closed the connection unexpectedly")
		}
		if invocations == 2 {
			return serializationFailure()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if source.discarded != 1 {
		t.Errorf("expected 1 discarded session, got %d", source.discarded)
	}
	// Conflict and success leave the session usable.
	if source.released != 2 {
		t.Errorf("expected 2 released sessions, got %d", source.released)
	}
}

func TestExecutor_CancellationBeforeAttempt(t *testing.T) {
	source := &stubSource{}
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	history, err := executor.Execute(ctx, func(ctx context.Context, session int) error {
		t.Fatal("unit of work must not run after cancellation")
		return nil
	})

	if len(history) != 0 {
		t.Errorf("expected empty history, got %d attempts", len(history))
	}
	var failure *recommit.FailureError
	if !errors.As(err, &failure) || failure.Reason != recommit.ReasonCancelled {
		t.Fatalf("expected cancelled verdict, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled to remain reachable, got %v", err)
	}
}

func TestExecutor_CancellationDuringBackoff(t *testing.T) {
	source := &stubSource{}
	policy := fastPolicy(10)
	policy.BaseDelay = time.Second
	policy.MaxDelay = 10 * time.Second
	executor := NewExecutor[int](source, NewPgErrorClassifier(), policy)

	ctx, cancel := context.WithCancel(context.Background())

	invocations := 0
	done := make(chan struct{})
	var history recommit.History
	var err error
	go func() {
		defer close(done)
		history, err = executor.Execute(ctx, func(ctx context.Context, session int) error {
			invocations++
			return serializationFailure()
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("executor did not observe cancellation during backoff")
	}

	if invocations != 1 {
		t.Errorf("expected sleep interrupted after 1 invocation, got %d", invocations)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 attempt in history, got %d", len(history))
	}
	var failure *recommit.FailureError
	if !errors.As(err, &failure) || failure.Reason != recommit.ReasonCancelled {
		t.Fatalf("expected cancelled verdict, got %v", err)
	}
	if source.disposed() != 1 {
		t.Errorf("session held across backoff: %d disposed", source.disposed())
	}
}

func TestExecutor_OnAttemptHook(t *testing.T) {
	source := &stubSource{}
	var events []recommit.AttemptEvent
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(5),
		WithJitterFunc(func() float64 { return 0.5 }),
	).WithOnAttempt(func(ev recommit.AttemptEvent) {
		events = append(events, ev)
	})

	invocations := 0
	_, err := executor.Execute(context.Background(), func(ctx context.Context, session int) error {
		invocations++
		if invocations < 3 {
			return serializationFailure()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("expected one event per attempt, got %d", len(events))
	}
	if events[0].Classification != recommit.KindRetryable || events[0].Delay != time.Millisecond {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[1].Delay != 2*time.Millisecond {
		t.Errorf("event 1 delay = %v, want 2ms", events[1].Delay)
	}
	if events[2].Err != nil || events[2].Delay != 0 {
		t.Errorf("success event = %+v", events[2])
	}
}

func TestExecutor_WithOnAttemptReturnsNewInstance(t *testing.T) {
	source := &stubSource{}
	base := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(5))

	derived := base.WithOnAttempt(func(recommit.AttemptEvent) {})
	if base.onAttempt != nil {
		t.Error("WithOnAttempt mutated the receiver")
	}
	if derived.onAttempt == nil {
		t.Error("derived executor lost the hook")
	}
}

func TestExecute_ValueReturning(t *testing.T) {
	source := &stubSource{}
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(5))

	invocations := 0
	balance, history, err := Execute(context.Background(), executor,
		func(ctx context.Context, session int) (int64, error) {
			invocations++
			if invocations < 2 {
				return 0, serializationFailure()
			}
			return 4200, nil
		})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if balance != 4200 {
		t.Errorf("expected 4200, got %d", balance)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(history))
	}
}

func TestExecute_ZeroValueOnFailure(t *testing.T) {
	source := &stubSource{}
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(2))

	value, _, err := Execute(context.Background(), executor,
		func(ctx context.Context, session int) (string, error) {
			return "partial", serializationFailure()
		})

	if err == nil {
		t.Fatal("expected terminal failure")
	}
	if value != "" {
		t.Errorf("expected zero value on failure, got %q", value)
	}
}

func TestDo_FuncExecutor(t *testing.T) {
	executor := NewFuncExecutor(NewPgErrorClassifier(), fastPolicy(3))

	invocations := 0
	err := Do(context.Background(), executor, func(ctx context.Context) error {
		invocations++
		if invocations < 2 {
			return fmt.Errorf("dial: %w", errors.New("connection refused"))
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if invocations != 2 {
		t.Errorf("expected 2 invocations, got %d", invocations)
	}
}

func TestExecutor_ConcurrentExecutionsIndependent(t *testing.T) {
	source := &stubSource{}
	executor := NewExecutor[int](source, NewPgErrorClassifier(), fastPolicy(5))

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	histories := make([]recommit.History, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			invocations := 0
			histories[w], errs[w] = executor.Execute(context.Background(),
				func(ctx context.Context, session int) error {
					invocations++
					if invocations <= w%3 {
						return serializationFailure()
					}
					return nil
				})
		}(w)
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		if errs[w] != nil {
			t.Errorf("worker %d failed: %v", w, errs[w])
		}
		if want := w%3 + 1; len(histories[w]) != want {
			t.Errorf("worker %d history length %d, want %d", w, len(histories[w]), want)
		}
	}
}
