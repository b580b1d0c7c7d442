// Package db provides the pgx-backed resource layer for the retry executor:
// a pooled session source and connectors for standard and cloud IAM
// authentication.
package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/recommit/pkg/recommit"
)

// PoolSource adapts a pgxpool.Pool to the recommit.SessionSource contract.
// Every attempt gets its own pooled connection; released connections go back
// to the pool, discarded ones are closed so the pool replaces them.
type PoolSource struct {
	pool *pgxpool.Pool
}

var _ recommit.SessionSource[*pgxpool.Conn] = (*PoolSource)(nil)

// NewPoolSource creates a session source over the given pool.
// Panics if pool is nil.
func NewPoolSource(pool *pgxpool.Pool) *PoolSource {
	if pool == nil {
		panic("pool cannot be nil")
	}
	return &PoolSource{pool: pool}
}

// Acquire obtains a fresh connection from the pool.
func (s *PoolSource) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	return s.pool.Acquire(ctx)
}

// Release returns a usable connection to the pool.
func (s *PoolSource) Release(conn *pgxpool.Conn) {
	if conn != nil {
		conn.Release()
	}
}

// Discard closes the underlying connection before releasing, so the pool
// drops it instead of handing it to the next caller.
func (s *PoolSource) Discard(conn *pgxpool.Conn) {
	if conn == nil {
		return
	}
	_ = conn.Conn().Close(context.Background())
	conn.Release()
}
