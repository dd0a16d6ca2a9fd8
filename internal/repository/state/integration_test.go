//go:build integration

package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// TestPostgresStore runs the shared store behaviour against a real PostgreSQL.
func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("energy"),
		tcpostgres.WithUsername("energy"),
		tcpostgres.WithPassword("energy"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	testStore(t, store)
}

// TestRedisStore runs the shared store behaviour against a real Redis.
func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := OpenRedis(ctx, url, "test:")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	testStore(t, store)
}
