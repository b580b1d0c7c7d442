package retry

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/recommit/pkg/recommit"
)

// SQLSTATE codes relevant to retry classification.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
// CockroachDB reports serialization conflicts with the same codes.
const (
	// Class 40 - Transaction Rollback
	pgCodeSerializationFailure       = "40001"
	pgCodeStatementCompletionUnknown = "40003"
	pgCodeDeadlockDetected           = "40P01"

	// Class 55 - Object Not In Prerequisite State
	pgCodeLockNotAvailable = "55P03"

	// Class 53 - Insufficient Resources
	pgCodeTooManyConnections = "53300"

	// Class prefixes checked as families
	pgClassConnectionException   = "08"
	pgClassInsufficientResources = "53"
	pgClassOperatorIntervention  = "57"
)

// PgErrorClassifier implements recommit.ErrorClassifier for errors surfaced
// by pgx against PostgreSQL or CockroachDB.
//
// Server-reported errors are classified strictly by SQLSTATE code: message
// text is not a contract and changes between database versions. Client-side
// errors (dial failures, resets) carry no SQLSTATE and are recognized by
// their Go error types, with a short message-pattern fallback for driver
// errors that surface only as strings.
type PgErrorClassifier struct{}

// NewPgErrorClassifier creates a new classifier for pgx/PostgreSQL errors.
func NewPgErrorClassifier() *PgErrorClassifier {
	return &PgErrorClassifier{}
}

// Classify returns the retry taxonomy kind for err.
func (c *PgErrorClassifier) Classify(err error) recommit.Kind {
	if err == nil {
		return recommit.KindFatal
	}

	// Session acquisition failures never ran the unit of work; the next
	// attempt simply needs a fresh session.
	if errors.Is(err, recommit.ErrSessionAcquire) {
		return recommit.KindResourceBroken
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return c.classifyPgError(pgErr)
	}

	// The server never received the statement; re-running cannot double-apply.
	if pgconn.SafeToRetry(err) {
		return recommit.KindResourceBroken
	}

	if c.isNetworkError(err) {
		return recommit.KindResourceBroken
	}

	if c.isConnectionError(err) {
		return recommit.KindResourceBroken
	}

	return recommit.KindFatal
}

// classifyPgError maps a server-reported SQLSTATE onto the taxonomy.
func (c *PgErrorClassifier) classifyPgError(pgErr *pgconn.PgError) recommit.Kind {
	code := pgErr.Code

	switch code {
	// The transaction was aborted with no durable effect and the server
	// asks the client to restart it from scratch.
	case pgCodeSerializationFailure, pgCodeDeadlockDetected, pgCodeLockNotAvailable:
		return recommit.KindRetryable

	// The commit outcome is unknown: the transaction may have applied.
	// Blind re-execution could double-apply, so this is never retried here.
	case pgCodeStatementCompletionUnknown:
		return recommit.KindFatal

	case pgCodeTooManyConnections:
		return recommit.KindResourceBroken
	}

	// Class 08 - Connection Exception
	if strings.HasPrefix(code, pgClassConnectionException) {
		return recommit.KindResourceBroken
	}

	// Class 53 - Insufficient Resources
	if strings.HasPrefix(code, pgClassInsufficientResources) {
		return recommit.KindResourceBroken
	}

	// Class 57 - Operator Intervention (admin shutdown, crash shutdown, etc.)
	if strings.HasPrefix(code, pgClassOperatorIntervention) {
		return recommit.KindResourceBroken
	}

	return recommit.KindFatal
}

// isNetworkError checks for network-level errors.
func (c *PgErrorClassifier) isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Temporary() || opErr.Timeout() {
			return true
		}

		if opErr.Err != nil {
			if errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
				errors.Is(opErr.Err, syscall.ECONNRESET) ||
				errors.Is(opErr.Err, syscall.EPIPE) ||
				errors.Is(opErr.Err, syscall.ENETUNREACH) ||
				errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
				return true
			}
		}
	}

	return false
}

// isConnectionError recognizes driver-level connection failures that
// surface without a typed error or SQLSTATE. Last resort only.
func (c *PgErrorClassifier) isConnectionError(err error) bool {
	msg := strings.ToLower(err.Error())

	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"unexpected eof",
		"i/o timeout",
		"server closed the connection",
		"conn closed",
		"pool closed",
	}

	for _, pattern := range patterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}
