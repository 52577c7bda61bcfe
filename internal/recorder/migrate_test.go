package recorder

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "capture.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrations(t *testing.T) {
	db := openRawDB(t)

	version, dirty, err := MigrateVersion(db)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, MigrateUp(db))
	version, dirty, err = MigrateVersion(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	for _, table := range []string{"capture_sessions", "capture_frames", "capture_selections", "panel_events"} {
		assert.True(t, tableExists(t, db, table), table)
	}

	// already at latest
	require.NoError(t, MigrateUp(db))

	require.NoError(t, MigrateDown(db))
	assert.False(t, tableExists(t, db, "capture_frames"))
	assert.False(t, tableExists(t, db, "panel_events"))

	// the handle is still usable after migrating
	require.NoError(t, db.Ping())
}
