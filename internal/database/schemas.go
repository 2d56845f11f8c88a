package database

// LibrarySchema holds one JSON blob per library category.
const LibrarySchema = `
CREATE TABLE IF NOT EXISTS library_blobs (
    key TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// CacheSchema holds last-known-good decision-service responses.
const CacheSchema = `
CREATE TABLE IF NOT EXISTS scenario_ticks (
    scenario_id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS scenario_time (
    scenario_id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scenario_ticks_expires ON scenario_ticks(expires_at);
CREATE INDEX IF NOT EXISTS idx_scenario_time_expires ON scenario_time(expires_at);
`

var schemas = map[string]string{
	"library": LibrarySchema,
	"cache":   CacheSchema,
}
