package db

import (
	"context"
	"time"
)

// Token is a short-lived credential presented as the connection password.
// A zero ExpiresOn means the provider does not report expiry.
type Token struct {
	Value     string
	ExpiresOn time.Time
}

// Expired reports whether the token is already past its expiry at now.
// Tokens without a reported expiry are never considered expired.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresOn.IsZero() && !t.ExpiresOn.After(now)
}

// TokenProvider abstracts cloud token acquisition for database authentication.
// Mock providers implement the same interface in tests; AWS IAM and Azure
// Entra ID share the TokenBasedConnector through it.
type TokenProvider interface {
	// GetToken acquires a fresh short-lived token for database authentication.
	GetToken(ctx context.Context) (Token, error)

	// String returns a human-readable description for logging.
	// Must not include secrets.
	String() string
}

// AzurePostgreSQLScope is the OAuth scope for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"
