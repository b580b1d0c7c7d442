package recommit

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Execution completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or policy
	ExitConnectionError = 11 // Failed to connect to database
	ExitBudgetExhausted = 12 // Retryable error persisted past the attempt budget
	ExitCancelled       = 13 // Execution cancelled by the caller
)

// Defaults for the transaction retry policy. The base delay and jitter match
// the contention profile of serializable databases: short first wait, doubling
// growth, heavy randomization to decorrelate competing transactions.
const (
	// DefaultMaxAttempts bounds the attempts of one logical transaction.
	DefaultMaxAttempts = 15

	// DefaultBaseDelay is the pre-jitter delay before the first retry.
	DefaultBaseDelay = 50 * time.Millisecond

	// DefaultMultiplier doubles the delay on every retry.
	DefaultMultiplier = 2.0

	// DefaultJitterFactor spreads each delay by +/- 50%.
	DefaultJitterFactor = 0.5

	// DefaultMaxDelay bounds the worst-case single wait.
	DefaultMaxDelay = 2 * time.Second
)

// Defaults for connection establishment retry. Connecting is cheaper to
// retry than a whole transaction, but far less often worth it, so the
// budget is smaller and the delays are longer.
const (
	DefaultConnectMaxAttempts = 3
	DefaultConnectBaseDelay   = 100 * time.Millisecond
	DefaultConnectMaxDelay    = 1 * time.Minute
)
