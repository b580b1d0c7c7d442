package demo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Balances are stored as integer cents. BIGINT arithmetic is exact and
// scans to int64 without a decimal type on the Go side. TEXT rather than
// CockroachDB's STRING alias so the schema also runs on plain PostgreSQL.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS accounts (
    account_id    UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    customer_name TEXT NOT NULL,
    account_type  TEXT NOT NULL DEFAULT 'CHECKING',
    balance_cents BIGINT NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS payments (
    payment_id    UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    to_account_id UUID NOT NULL REFERENCES accounts(account_id),
    amount_cents  BIGINT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'SETTLED',
    reference     TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the demo tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create demo schema: %w", err)
	}
	return nil
}

// ResetTables clears payment and account rows between scenarios.
func ResetTables(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `DELETE FROM payments WHERE true`); err != nil {
		return fmt.Errorf("failed to clear payments: %w", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM accounts WHERE true`); err != nil {
		return fmt.Errorf("failed to clear accounts: %w", err)
	}
	return nil
}

// CreateMerchantAccount inserts a fresh merchant account with a zero
// balance and returns its id.
func CreateMerchantAccount(ctx context.Context, pool *pgxpool.Pool, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO accounts (customer_name, account_type, balance_cents)
		 VALUES ($1, 'MERCHANT', 0) RETURNING account_id`, name).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create merchant account: %w", err)
	}
	return id, nil
}

// CreateCustomerAccount inserts a checking account with an opening balance
// and returns its id.
func CreateCustomerAccount(ctx context.Context, pool *pgxpool.Pool, name string, openingCents int64) (uuid.UUID, error) {
	var id uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO accounts (customer_name, account_type, balance_cents)
		 VALUES ($1, 'CHECKING', $2) RETURNING account_id`, name, openingCents).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create customer account: %w", err)
	}
	return id, nil
}

// TotalBalance sums every account balance in cents.
func TotalBalance(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	var cents int64
	err := pool.QueryRow(ctx,
		`SELECT COALESCE(sum(balance_cents), 0)::BIGINT FROM accounts`).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("failed to sum balances: %w", err)
	}
	return cents, nil
}

// AccountBalance reads the current balance of an account in cents.
func AccountBalance(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) (int64, error) {
	var cents int64
	err := pool.QueryRow(ctx,
		`SELECT balance_cents FROM accounts WHERE account_id = $1`, id).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return cents, nil
}

func setBalance(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, cents int64) error {
	if _, err := pool.Exec(ctx,
		`UPDATE accounts SET balance_cents = $1, updated_at = now() WHERE account_id = $2`, cents, id); err != nil {
		return fmt.Errorf("failed to reset balance: %w", err)
	}
	return nil
}
