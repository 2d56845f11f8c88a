// Package testing provides testing utilities and helpers for the sentinel-desk project.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/aristath/sentinel-desk/internal/database"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a temporary SQLite database for testing with automatic schema migration.
// Returns the database instance and a cleanup function that closes the connection.
//
// Supported schema names:
//   - "library" - applies LibrarySchema
//   - "cache" - applies CacheSchema
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	// Temporary files keep tests isolated from each other
	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	profile := database.ProfileStandard
	if name == "cache" {
		profile = database.ProfileCache
	}
	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		// WAL side files
		for _, p := range []string{tmpPath, tmpPath + "-wal", tmpPath + "-shm"} {
			_ = os.Remove(p)
		}
	}
}
