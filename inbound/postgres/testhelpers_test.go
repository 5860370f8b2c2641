//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultDatabase = "testdb"
	defaultUser     = "testuser"
	defaultPassword = "testpass"
)

// SetupPostgresContainer starts a PostgreSQL container and returns a migrated store
func SetupPostgresContainer(tb testing.TB, ctx context.Context) (*Store, func()) {
	tb.Helper()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(defaultDatabase),
		postgres.WithUsername(defaultUser),
		postgres.WithPassword(defaultPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(tb, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(tb, err)

	store, err := NewStore(connStr)
	require.NoError(tb, err)
	require.NoError(tb, store.Migrate(ctx))

	cleanup := func() {
		_ = store.Close()
		_ = container.Terminate(ctx)
	}

	return store, cleanup
}
