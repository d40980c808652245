package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryRunsMigrations(t *testing.T) {
	ctx := context.Background()

	conn, err := Open(ctx, "sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(conn) })

	for _, table := range []string{"users", "profiles", "file_shares", "file_downloads", "user_activities", "tokens"} {
		var n int
		err := conn.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = $1`, table)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}

	version, err := Version(ctx, conn.DB, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(5), version)
}

func TestMigrateDownRollsBackOneStep(t *testing.T) {
	ctx := context.Background()

	conn, err := Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(conn) })

	require.NoError(t, MigrateDown(ctx, conn.DB, "sqlite"))

	version, err := Version(ctx, conn.DB, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(4), version)
}

func TestUnsupportedDriver(t *testing.T) {
	err := RunMigrations(context.Background(), nil, "mysql")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestFileDatabaseWaitsOnLocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "fileshare.db")

	conn, err := Open(context.Background(), "sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(conn) })

	var timeout int
	require.NoError(t, conn.Get(&timeout, `PRAGMA busy_timeout`))
	assert.Equal(t, 5000, timeout)
}

func TestWithPragma(t *testing.T) {
	assert.Equal(t, "app.db?_pragma=busy_timeout(5000)", withPragma("app.db", "busy_timeout(5000)"))
	assert.Equal(t, "app.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		withPragma("app.db?_pragma=foreign_keys(1)", "busy_timeout(5000)"))
}
