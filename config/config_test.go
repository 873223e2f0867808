package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "MIGRATIONS_TABLE", "MIGRATION_LOGS_TABLE", "MIGRATION_LOCK_ID", "MIGRATIONS_TRANSACTIONAL"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "schema_migrations", cfg.MigrationsTable)
	assert.Equal(t, "migration_logs", cfg.LogsTable)
	assert.True(t, cfg.InTransaction())
	assert.Error(t, cfg.RequireDatabase())
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: postgres://file/db
migrations_table: booking_migrations
transactional: false
lock_id: 42
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://file/db", cfg.DatabaseURL)
	assert.Equal(t, "booking_migrations", cfg.MigrationsTable)
	assert.Equal(t, "migration_logs", cfg.LogsTable)
	assert.Equal(t, int64(42), cfg.LockID)
	assert.False(t, cfg.InTransaction())
	assert.NoError(t, cfg.RequireDatabase())

	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("MIGRATIONS_TRANSACTIONAL", "true")
	t.Setenv("MIGRATION_LOCK_ID", "7")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.True(t, cfg.InTransaction())
	assert.Equal(t, int64(7), cfg.LockID)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("lock_id: [nope"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	same := filepath.Join(dir, "same.yaml")
	require.NoError(t, os.WriteFile(same, []byte("migrations_table: t\nlogs_table: t\n"), 0o644))
	_, err = Load(same)
	assert.Error(t, err)

	chdir(t, dir)
	t.Setenv("MIGRATION_LOCK_ID", "abc")
	_, err = Load("")
	assert.Error(t, err)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory and restores the previous one when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
