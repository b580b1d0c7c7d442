package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/recommit/internal/retry"
	"github.com/vvka-141/recommit/pkg/recommit"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns bounds concurrent connections. Contention workloads
	// gain nothing from oversized pools; the hot row serializes them anyway.
	DefaultMaxConns = 20

	// DefaultMinConns keeps a warm connection ready between scenarios.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime recycles idle connections eventually.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
}

// connectPolicy is the retry policy for connection establishment, distinct
// from the transaction retry policy: fewer attempts, longer waits.
func connectPolicy() recommit.Policy {
	p := recommit.DefaultPolicy()
	p.MaxAttempts = recommit.DefaultConnectMaxAttempts
	p.BaseDelay = recommit.DefaultConnectBaseDelay
	p.MaxDelay = recommit.DefaultConnectMaxDelay
	return p
}

// StandardConnector implements the Connector interface for standard
// username/password authentication with automatic retry on broken-resource
// failures.
type StandardConnector struct {
	config   *recommit.ConnectionConfig
	executor *retry.Executor[struct{}]
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
func NewStandardConnector(config *recommit.ConnectionConfig) *StandardConnector {
	return &StandardConnector{
		config:   config,
		executor: retry.NewFuncExecutor(retry.NewPgErrorClassifier(), connectPolicy()),
	}
}

// Connect establishes a connection pool using standard authentication with automatic retry.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	connStr := BuildConnectionString(c.config)

	err := retry.Do(ctx, c.executor, func(ctx context.Context) error {
		poolConfig, err := pgxpool.ParseConfig(connStr)
		if err != nil {
			return fmt.Errorf("failed to parse connection config: %w", err)
		}

		configurePool(poolConfig)

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return wrapConnectionError(err, c.config.Host, c.config.Port, c.config.Database)
		}

		// Test the connection
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return wrapConnectionError(err, c.config.Host, c.config.Port, c.config.Database)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return pool, nil
}

// NewConnector is a factory function that creates the appropriate Connector
// based on the ConnectionConfig's AuthMethod.
func NewConnector(config *recommit.ConnectionConfig) (recommit.Connector, error) {
	switch config.AuthMethod {
	case recommit.AuthMethodStandard:
		return NewStandardConnector(config), nil
	case recommit.AuthMethodAWSIAM:
		provider, err := NewAWSIAMTokenProvider(
			fmt.Sprintf("%s:%d", config.Host, config.Port),
			config.AWSRegion,
			config.Username,
		)
		if err != nil {
			return nil, err
		}
		return NewTokenBasedConnector(config, provider, "AWS IAM"), nil
	case recommit.AuthMethodAzureEntraID:
		provider, err := newAzureTokenProvider(config)
		if err != nil {
			return nil, err
		}
		return NewTokenBasedConnector(config, provider, "Azure Entra ID"), nil
	case recommit.AuthMethodGoogleIAM:
		if config.GoogleInstance == "" {
			return nil, fmt.Errorf("google IAM auth requires an instance connection name: %w", recommit.ErrInvalidConfig)
		}
		return NewGoogleCloudSQLConnector(config, config.GoogleInstance), nil
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, recommit.ErrUnsupportedAuthMethod)
	}
}

// newAzureTokenProvider picks Service Principal auth when the triple is
// fully specified, the default credential chain otherwise.
func newAzureTokenProvider(config *recommit.ConnectionConfig) (TokenProvider, error) {
	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		return NewAzureServicePrincipalProvider(config.AzureTenantID, config.AzureClientID, config.AzureClientSecret)
	}
	return NewAzureDefaultCredentialProvider()
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - The database server is not running
  - Wrong host or port (CockroachDB listens on 26257 by default)
  - Firewall blocking the connection

Original error: %w`, addr, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable
  - Network connection issue

Original error: %w`, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or ~/.pgpass)
  - Wrong username
  - User does not have access to the database

Original error: %w`, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist

To create it:
  CREATE DATABASE %s;

Original error: %w`, database, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Network latency or packet loss
  - Firewall silently dropping packets

Original error: %w`, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`SSL/TLS connection error

Possible causes:
  - Server requires SSL but sslmode is wrong
  - Certificate verification failed (try sslmode=require)
  - Running an insecure local node? Use sslmode=disable

Original error: %w`, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`too many connections to database "%s"

Possible causes:
  - Connection pool exhausted on server
  - max_connections limit reached
  - Stale connections from previous runs

Original error: %w`, database, err)

	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}
