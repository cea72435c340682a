//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iwvelando/revenue-forecast/internal/storage"
	"github.com/iwvelando/revenue-forecast/internal/storage/storagetest"
)

// setupTestDSN starts a PostgreSQL container and returns its connection string.
func setupTestDSN(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")
	return dsn
}

func TestStore(t *testing.T) {
	dsn := setupTestDSN(t)
	ctx := context.Background()

	storagetest.Run(t, func(t *testing.T) storage.Store {
		store, err := New(ctx, dsn)
		require.NoError(t, err)
		_, err = store.pool.Exec(ctx, "TRUNCATE segments, models")
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	dsn := setupTestDSN(t)
	ctx := context.Background()

	first, err := New(ctx, dsn)
	require.NoError(t, err)
	first.Close()

	second, err := New(ctx, dsn)
	require.NoError(t, err)
	second.Close()
}
