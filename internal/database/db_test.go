package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MigratesLibrarySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "library.db")

	db, err := New(Config{Path: path, Name: "library"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "library", db.Name())
	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate(), "migration is idempotent")

	_, err = db.Conn().Exec("INSERT INTO library_blobs (key, data, updated_at) VALUES ('k', '[]', 1)")
	require.NoError(t, err)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Positive(t, stats.PageCount)
	assert.NoError(t, db.WALCheckpoint(""))
}

func TestNew_CacheProfile(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "cache.db"), Profile: ProfileCache, Name: "cache"})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())

	var n int
	err = db.Conn().QueryRow("SELECT COUNT(*) FROM scenario_ticks").Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBuildConnectionString(t *testing.T) {
	assert.Contains(t, buildConnectionString("/tmp/x.db", ProfileCache), "/tmp/x.db?_pragma=journal_mode(WAL)&_pragma=synchronous(OFF)")
	assert.Contains(t, buildConnectionString("file:mem?mode=memory", ProfileStandard), "file:mem?mode=memory&_pragma=journal_mode(WAL)")
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "lib.db"), Name: "library"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate())

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO library_blobs (key, data, updated_at) VALUES ('a', '[]', 1)"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	var n int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM library_blobs").Scan(&n))
	assert.Zero(t, n)
}
