package testinfra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	CockroachImage = "cockroachdb/cockroach:latest-v24.1"

	PostgresImage    = "postgres:17-alpine"
	PostgresUser     = "postgres"
	PostgresPassword = "postgres"
	PostgresDB       = "postgres"
)

// DatabaseContainer is a running database suitable for contention tests,
// with a ready-to-use connection string.
type DatabaseContainer struct {
	testcontainers.Container
	ConnString string
}

// StartCockroach starts a single-node insecure CockroachDB container.
// CockroachDB always runs at serializable isolation, so it reproduces the
// 40001 conflicts the executor exists for without extra configuration.
func StartCockroach(ctx context.Context) (*DatabaseContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        CockroachImage,
		ExposedPorts: []string{"26257/tcp"},
		Cmd:          []string{"start-single-node", "--insecure"},
		WaitingFor: wait.ForListeningPort("26257/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start cockroach: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := ctr.MappedPort(ctx, "26257")
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	connStr := fmt.Sprintf("postgresql://root@%s:%s/defaultdb?sslmode=disable", host, port.Port())
	return &DatabaseContainer{Container: ctr, ConnString: connStr}, nil
}

// StartSerializablePostgres starts a PostgreSQL container with
// default_transaction_isolation forced to serializable, so read-modify-write
// conflicts surface as 40001 the same way CockroachDB reports them.
func StartSerializablePostgres(ctx context.Context) (*DatabaseContainer, error) {
	confPath, err := writeSerializableConfig()
	if err != nil {
		return nil, err
	}

	ctr, err := postgres.Run(ctx,
		PostgresImage,
		postgres.WithUsername(PostgresUser),
		postgres.WithPassword(PostgresPassword),
		postgres.WithDatabase(PostgresDB),
		postgres.WithConfigFile(confPath),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &DatabaseContainer{Container: ctr, ConnString: connStr}, nil
}

func writeSerializableConfig() (string, error) {
	conf := `listen_addresses = '*'
default_transaction_isolation = 'serializable'
`
	dir, err := os.MkdirTemp("", "recommit-pg")
	if err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	path := filepath.Join(dir, "postgresql.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		return "", fmt.Errorf("write postgresql.conf: %w", err)
	}
	return path, nil
}
