package clientdata

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/aristath/sentinel-desk/internal/database"
	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(database.CacheSchema)
	require.NoError(t, err)

	return db
}

func TestStore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	err := repo.Store(TableScenarioTime, "scn-1", map[string]string{"now": "2026-01-01T00:00:00.000Z"}, time.Hour)
	require.NoError(t, err)

	var storedData string
	var expiresAt int64
	err = db.QueryRow("SELECT data, expires_at FROM scenario_time WHERE scenario_id = ?", "scn-1").Scan(&storedData, &expiresAt)
	require.NoError(t, err)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal([]byte(storedData), &parsed))
	assert.Equal(t, "2026-01-01T00:00:00.000Z", parsed["now"])
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), expiresAt, 5)
}

func TestStoreUpsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	require.NoError(t, repo.Store(TableScenarioTicks, "scn-1", []string{"v1"}, time.Hour))
	require.NoError(t, repo.Store(TableScenarioTicks, "scn-1", []string{"v2"}, time.Hour))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM scenario_ticks").Scan(&count))
	assert.Equal(t, 1, count)

	result, err := repo.GetIfFresh(TableScenarioTicks, "scn-1")
	require.NoError(t, err)
	assert.JSONEq(t, `["v2"]`, string(result))
}

func TestGet_ReturnsStaleData(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	_, err := db.Exec(
		"INSERT INTO scenario_ticks (scenario_id, data, expires_at) VALUES (?, ?, ?)",
		"scn-1", `["stale_but_useful"]`, time.Now().Add(-time.Hour).Unix(),
	)
	require.NoError(t, err)

	result, err := repo.GetIfFresh(TableScenarioTicks, "scn-1")
	require.NoError(t, err)
	assert.Nil(t, result, "GetIfFresh should return nil for expired data")

	result, err = repo.Get(TableScenarioTicks, "scn-1")
	require.NoError(t, err)
	assert.JSONEq(t, `["stale_but_useful"]`, string(result))
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	result, err := NewRepository(db).Get(TableScenarioTicks, "missing")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestInvalidTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	assert.Error(t, repo.Store("scenarios; DROP TABLE x", "k", 1, time.Hour))
	_, err := repo.Get("library_blobs", "k")
	assert.Error(t, err)
	_, err = repo.DeleteExpired("nope")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TableScenarioTime, "scn-1", 1, time.Hour))

	require.NoError(t, repo.Delete(TableScenarioTime, "scn-1"))

	result, err := repo.Get(TableScenarioTime, "scn-1")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestResponseCache_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	cache := NewResponseCache(NewRepository(db))

	_, ok, err := cache.StaleTicks("scn-1")
	require.NoError(t, err)
	assert.False(t, ok)

	ticks := []domain.Tick{{ID: "t1", Timestamp: "2026-01-01T00:00:00.000Z", Metadata: domain.TickMetadata{PlanID: "p"}}}
	require.NoError(t, cache.StoreTicks("scn-1", ticks))
	got, ok, err := cache.StaleTicks("scn-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ticks, got)

	st := domain.ScenarioTime{Now: "2026-01-01T00:00:00.000Z", WindowStart: "2025-12-01"}
	require.NoError(t, cache.StoreTime("scn-1", st))
	gotTime, ok, err := cache.StaleTime("scn-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st, gotTime)
}
