package retry

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/recommit/pkg/recommit"
)

func TestPgErrorClassifier_SQLStateCodes(t *testing.T) {
	c := NewPgErrorClassifier()

	tests := []struct {
		name string
		code string
		want recommit.Kind
	}{
		{"serialization failure", "40001", recommit.KindRetryable},
		{"deadlock detected", "40P01", recommit.KindRetryable},
		{"lock not available", "55P03", recommit.KindRetryable},

		// Ambiguous commit: the transaction may have applied, so blind
		// re-execution is unsafe.
		{"statement completion unknown", "40003", recommit.KindFatal},

		{"connection exception", "08000", recommit.KindResourceBroken},
		{"connection does not exist", "08003", recommit.KindResourceBroken},
		{"connection failure", "08006", recommit.KindResourceBroken},
		{"too many connections", "53300", recommit.KindResourceBroken},
		{"out of memory", "53200", recommit.KindResourceBroken},
		{"admin shutdown", "57P01", recommit.KindResourceBroken},
		{"cannot connect now", "57P03", recommit.KindResourceBroken},

		{"unique violation", "23505", recommit.KindFatal},
		{"foreign key violation", "23503", recommit.KindFatal},
		{"syntax error", "42601", recommit.KindFatal},
		{"undefined table", "42P01", recommit.KindFatal},
		{"division by zero", "22012", recommit.KindFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &pgconn.PgError{Code: tt.code, Message: tt.name}
			if got := c.Classify(err); got != tt.want {
				t.Errorf("Classify(%s) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestPgErrorClassifier_WrappedPgError(t *testing.T) {
	c := NewPgErrorClassifier()

	inner := &pgconn.PgError{Code: "40001", Message: "restart transaction"}
	wrapped := fmt.Errorf("deposit failed: %w", inner)

	if got := c.Classify(wrapped); got != recommit.KindRetryable {
		t.Errorf("Classify(wrapped 40001) = %v, want retryable", got)
	}
}

func TestPgErrorClassifier_AcquireSentinel(t *testing.T) {
	c := NewPgErrorClassifier()

	err := fmt.Errorf("%w: pool saturated", recommit.ErrSessionAcquire)
	if got := c.Classify(err); got != recommit.KindResourceBroken {
		t.Errorf("Classify(acquire failure) = %v, want resource-broken", got)
	}
}

func TestPgErrorClassifier_NetworkErrors(t *testing.T) {
	c := NewPgErrorClassifier()

	tests := []struct {
		name string
		err  error
		want recommit.Kind
	}{
		{
			"connection refused",
			&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			recommit.KindResourceBroken,
		},
		{
			"connection reset",
			&net.OpError{Op: "read", Err: syscall.ECONNRESET},
			recommit.KindResourceBroken,
		},
		{
			"dns timeout",
			&net.DNSError{Err: "lookup timeout", IsTimeout: true},
			recommit.KindResourceBroken,
		},
		{
			"permanent dns failure",
			&net.DNSError{Err: "no such host"},
			recommit.KindFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

type safeToRetryError struct{}

func (safeToRetryError) Error() string     { return "write failed before request sent" }
func (safeToRetryError) SafeToRetry() bool { return true }

func TestPgErrorClassifier_SafeToRetry(t *testing.T) {
	c := NewPgErrorClassifier()

	if got := c.Classify(safeToRetryError{}); got != recommit.KindResourceBroken {
		t.Errorf("Classify(safe-to-retry) = %v, want resource-broken", got)
	}
}

func TestPgErrorClassifier_DriverMessageFallback(t *testing.T) {
	c := NewPgErrorClassifier()

	for _, msg := range []string{
		"server closed the connection unexpectedly",
		"conn closed",
		"read tcp 10.0.0.1:54321: i/o timeout",
	} {
		if got := c.Classify(errors.New(msg)); got != recommit.KindResourceBroken {
			t.Errorf("Classify(%q) = %v, want resource-broken", msg, got)
		}
	}
}

func TestPgErrorClassifier_ApplicationErrorsAreFatal(t *testing.T) {
	c := NewPgErrorClassifier()

	if got := c.Classify(errors.New("balance would go negative")); got != recommit.KindFatal {
		t.Errorf("Classify(application error) = %v, want fatal", got)
	}
	if got := c.Classify(nil); got != recommit.KindFatal {
		t.Errorf("Classify(nil) = %v, want fatal", got)
	}
}
