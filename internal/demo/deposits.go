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
	depositCount = 10
	depositCents = 7500 // $75.00 per payment
)

// RunDeposits simulates a hot merchant account receiving concurrent payment
// deposits. Every deposit is a read-modify-write on the same balance row, so
// most attempts conflict under serializable isolation. With full-transaction
// retry every payment lands and the final balance is exact.
func RunDeposits(ctx context.Context, deps Deps) error {
	log := deps.Logger

	if err := EnsureSchema(ctx, deps.Pool); err != nil {
		return err
	}
	if err := ResetTables(ctx, deps.Pool); err != nil {
		return err
	}

	merchantID, err := CreateMerchantAccount(ctx, deps.Pool, "Acme Corp Merchant")
	if err != nil {
		return err
	}
	log.Info("merchant account created: %s", merchantID)
	log.Info("launching %d concurrent $%.2f deposits", depositCount, float64(depositCents)/100)

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

	for i := 1; i <= depositCount; i++ {
		wg.Add(1)
		go func(paymentNum int) {
			defer wg.Done()
			<-startGate

			reference := fmt.Sprintf("payroll-%04d", paymentNum)
			history, err := executor.Execute(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
				return deposit(ctx, conn, merchantID, depositCents, reference)
			})
			metrics.ObserveExecution(history, err)
			if err != nil {
				log.Error("payment #%d failed after %d attempt(s): %v", paymentNum, len(history), err)
				return
			}
			succeeded.Add(1)
		}(i)
	}

	// Release all writers at once for maximum contention.
	close(startGate)
	wg.Wait()

	balance, err := AccountBalance(ctx, deps.Pool, merchantID)
	if err != nil {
		return err
	}

	expected := int64(depositCount * depositCents)
	log.Info("successful deposits: %d/%d (%d conflicts retried)", succeeded.Load(), depositCount, retries.Load())
	log.Info("final balance:    $%.2f", float64(balance)/100)
	log.Info("expected balance: $%.2f", float64(expected)/100)

	if balance != expected || succeeded.Load() != depositCount {
		return fmt.Errorf("deposits scenario lost updates: balance %d cents, expected %d", balance, expected)
	}
	log.Info("no lost updates, no double counts")
	return nil
}

// deposit runs one complete payment transaction: read the balance, write it
// back with the amount added, and record the payment row. The transaction
// rolls back on any error so a retry starts from a clean slate.
func deposit(ctx context.Context, conn *pgxpool.Conn, accountID uuid.UUID, amountCents int64, reference string) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance int64
	if err := tx.QueryRow(ctx,
		`SELECT balance_cents FROM accounts WHERE account_id = $1`, accountID).Scan(&balance); err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance_cents = $1, updated_at = now() WHERE account_id = $2`,
		balance+amountCents, accountID); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO payments (to_account_id, amount_cents, reference) VALUES ($1, $2, $3)`,
		accountID, amountCents, reference); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	return tx.Commit(ctx)
}
