package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/recommit/internal/retry"
	"github.com/vvka-141/recommit/pkg/recommit"
)

// TokenBasedConnector implements the Connector interface for cloud providers
// that authenticate via short-lived tokens (AWS IAM, Azure Entra ID).
// A fresh token is acquired on every connection attempt so a retry after a
// long backoff never presents an expired credential.
type TokenBasedConnector struct {
	config        *recommit.ConnectionConfig
	tokenProvider TokenProvider
	executor      *retry.Executor[struct{}]
	providerName  string
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for
// authentication. providerName appears in error messages ("AWS IAM", "Azure Entra ID").
func NewTokenBasedConnector(config *recommit.ConnectionConfig, tokenProvider TokenProvider, providerName string) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		executor:      retry.NewFuncExecutor(retry.NewPgErrorClassifier(), connectPolicy()),
		providerName:  providerName,
	}
}

// Connect establishes a connection pool using token-based authentication
// with automatic retry.
func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := retry.Do(ctx, c.executor, func(ctx context.Context) error {
		token, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire %s token: %w", c.providerName, err)
		}
		if token.Expired(time.Now()) {
			return fmt.Errorf("%s token from %s already expired", c.providerName, c.tokenProvider)
		}

		configWithToken := *c.config
		configWithToken.Password = token.Value

		poolConfig, err := pgxpool.ParseConfig(BuildConnectionString(&configWithToken))
		if err != nil {
			return fmt.Errorf("failed to parse connection config: %w", err)
		}

		configurePool(poolConfig)

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return wrapConnectionError(err, c.config.Host, c.config.Port, c.config.Database)
		}

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
