package demo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/recommit/internal/db"
	"github.com/vvka-141/recommit/internal/metrics"
	"github.com/vvka-141/recommit/internal/retry"
	"github.com/vvka-141/recommit/pkg/recommit"
)

const scalingOps = 10

// RunScaling shows why adding writers to a hot-row workload lowers total
// throughput: only one transaction can commit per round, the rest abort and
// retry, and the wasted share grows with the writer count. The same number of
// deposits is pushed through 3 and then 6 concurrent workers and the
// throughput of each round is reported.
func RunScaling(ctx context.Context, deps Deps) error {
	log := deps.Logger

	if err := EnsureSchema(ctx, deps.Pool); err != nil {
		return err
	}
	if err := ResetTables(ctx, deps.Pool); err != nil {
		return err
	}

	merchantID, err := CreateMerchantAccount(ctx, deps.Pool, "Hot Row Merchant")
	if err != nil {
		return err
	}

	log.Info("pushing %d deposits through increasing worker counts on one account row", scalingOps)

	for _, workers := range []int{3, 6} {
		if err := setBalance(ctx, deps.Pool, merchantID, 0); err != nil {
			return err
		}

		var retries, succeeded atomic.Int64
		executor := retry.NewExecutor[*pgxpool.Conn](db.NewPoolSource(deps.Pool), retry.NewPgErrorClassifier(), deps.Policy).
			WithOnAttempt(func(event recommit.AttemptEvent) {
				metrics.ObserveAttempt(event)
				if event.Err != nil && event.Classification == recommit.KindRetryable {
					retries.Add(1)
				}
			})

		jobs := make(chan int)
		var wg sync.WaitGroup
		start := time.Now()

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for n := range jobs {
					reference := fmt.Sprintf("scaling-%04d", n)
					history, err := executor.Execute(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
						return deposit(ctx, conn, merchantID, depositCents, reference)
					})
					metrics.ObserveExecution(history, err)
					if err != nil {
						log.Error("deposit %d failed: %v", n, err)
						continue
					}
					succeeded.Add(1)
				}
			}()
		}

		for n := 1; n <= scalingOps; n++ {
			jobs <- n
		}
		close(jobs)
		wg.Wait()

		elapsed := time.Since(start)
		tps := float64(succeeded.Load()) / elapsed.Seconds()
		log.Info("  %d workers: %d/%d succeeded, %d retries, %v, ~%.1f TPS",
			workers, succeeded.Load(), scalingOps, retries.Load(), elapsed.Round(time.Millisecond), tps)
	}

	log.Info("more workers on the same row means more aborted rounds, not more throughput")
	return nil
}
