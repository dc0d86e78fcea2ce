//go:build integration

// Package testsupport starts disposable infrastructure for integration suites.
package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var migrationsDir string

func init() {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("unable to resolve testsupport filename for migration loading")
	}
	migrationsDir = filepath.Join(filepath.Dir(filename), "../../db/postgres/migrations")
}

// StartPostgres launches a Postgres container, applies every up migration in
// order, and returns a pool that is closed (and the container terminated) when
// the test finishes.
func StartPostgres(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("workouts"),
		postgrescontainer.WithUsername("workout"),
		postgrescontainer.WithPassword("workout"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	runMigrations(ctx, t, pool)
	return pool
}

func runMigrations(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)

	for _, file := range files {
		content, readErr := os.ReadFile(file)
		require.NoErrorf(t, readErr, "read migration %s", file)
		_, execErr := pool.Exec(ctx, string(content))
		require.NoErrorf(t, execErr, "execute migration %s", file)
	}
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
