// Package retry implements the transactional retry executor: it re-runs a
// whole unit of work against a serializable-isolation database whenever the
// database reports a serialization conflict, with exponential jittered
// backoff and a bounded attempt budget.
//
// The package supports pluggable error classification, backoff strategies
// and session sources, so the same executor drives transaction retry,
// connection establishment retry, and the simulated sources used in tests.
//
// # Example Usage
//
//	classifier := retry.NewPgErrorClassifier()
//	policy := recommit.DefaultPolicy()
//	executor := retry.NewExecutor(db.NewPoolSource(pool), classifier, policy)
//
//	history, err := executor.Execute(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
//	    return transferFunds(ctx, conn)
//	})
//
// # Error Classification
//
// The recommit.ErrorClassifier interface splits errors three ways: retryable
// (serialization conflicts, where the database guarantees no durable effect),
// resource-broken (the session itself is unusable and the next attempt needs
// a fresh one), and fatal (never retried). PgErrorClassifier reads SQLSTATE
// codes from pgconn errors; it never matches on message text of server errors.
//
// # Thread Safety
//
// Executor instances are safe for concurrent use: every Execute call owns its
// attempt history, its sessions, and its backoff timeline. Use WithOnAttempt()
// to derive independently configured instances.
package retry
