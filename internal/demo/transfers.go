package demo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/recommit/internal/db"
	"github.com/vvka-141/recommit/internal/metrics"
	"github.com/vvka-141/recommit/internal/retry"
	"github.com/vvka-141/recommit/pkg/recommit"
)

const (
	transferCount = 10
	transferCents = 5000    // $50.00 per transfer
	openingCents  = 1000000 // $10,000.00 per account
)

// RunTransfers moves money back and forth between two customer accounts
// under contention, restarting each transfer from BEGIN whenever the server
// aborts it. A popular alternative, ROLLBACK TO SAVEPOINT after a
// serialization failure, cannot work: the server aborts the entire
// transaction and every later statement in it fails, so partial rollback
// only adds round trips. The verification is conservation of money: the
// closing balances must sum to exactly the opening total.
func RunTransfers(ctx context.Context, deps Deps) error {
	log := deps.Logger

	if err := EnsureSchema(ctx, deps.Pool); err != nil {
		return err
	}
	if err := ResetTables(ctx, deps.Pool); err != nil {
		return err
	}

	alice, err := CreateCustomerAccount(ctx, deps.Pool, "Alice Johnson", openingCents)
	if err != nil {
		return err
	}
	bob, err := CreateCustomerAccount(ctx, deps.Pool, "Bob Martinez", openingCents)
	if err != nil {
		return err
	}
	log.Info("opened two accounts at $%.2f each", float64(openingCents)/100)
	log.Info("a serialization failure aborts the whole transaction; savepoint rollback cannot resume it")
	log.Info("launching %d concurrent $%.2f transfers, each restarted from the top on conflict", transferCount, float64(transferCents)/100)

	var retries atomic.Int64
	executor := retry.NewExecutor[*pgxpool.Conn](db.NewPoolSource(deps.Pool), retry.NewPgErrorClassifier(), deps.Policy).
		WithOnAttempt(func(event recommit.AttemptEvent) {
			metrics.ObserveAttempt(event)
			if event.Err != nil && event.Classification == recommit.KindRetryable {
				retries.Add(1)
				log.Verbose("conflict, retrying in %v: %v", event.Delay, event.Err)
			}
		})

	startGate := make(chan struct{})
	var wg sync.WaitGroup
	var succeeded atomic.Int64

	for i := 0; i < transferCount; i++ {
		from, to := alice, bob
		if i%2 == 1 {
			from, to = bob, alice
		}

		wg.Add(1)
		go func(transferNum int, from, to uuid.UUID) {
			defer wg.Done()
			<-startGate

			history, err := executor.Execute(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
				return transfer(ctx, conn, from, to, transferCents)
			})
			metrics.ObserveExecution(history, err)
			if err != nil {
				log.Error("transfer #%d failed after %d attempt(s): %v", transferNum, len(history), err)
				return
			}
			succeeded.Add(1)
		}(i+1, from, to)
	}

	close(startGate)
	wg.Wait()

	total, err := TotalBalance(ctx, deps.Pool)
	if err != nil {
		return err
	}

	expected := int64(2 * openingCents)
	log.Info("completed transfers: %d/%d (%d conflicts retried)", succeeded.Load(), transferCount, retries.Load())
	log.Info("closing total: $%.2f (opening total $%.2f)", float64(total)/100, float64(expected)/100)

	if total != expected || succeeded.Load() != transferCount {
		return fmt.Errorf("transfers scenario broke conservation of money: total %d cents, expected %d", total, expected)
	}
	log.Info("money conserved, every transfer applied exactly once")
	return nil
}

// transfer debits one account and credits the other inside a single
// transaction. Any failure rolls the whole thing back, so a retry replays
// both legs together.
func transfer(ctx context.Context, conn *pgxpool.Conn, fromID, toID uuid.UUID, amountCents int64) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance_cents = balance_cents - $1, updated_at = now() WHERE account_id = $2`,
		amountCents, fromID); err != nil {
		return fmt.Errorf("failed to debit account: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + $1, updated_at = now() WHERE account_id = $2`,
		amountCents, toID); err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}

	return tx.Commit(ctx)
}
