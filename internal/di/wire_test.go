package di

import (
	"context"
	"testing"

	"github.com/aristath/sentinel-desk/internal/config"
	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, backend string) *config.Config {
	return &config.Config{
		DataDir:            t.TempDir(),
		Port:               8010,
		DecisionServiceURL: "http://127.0.0.1:1",
		DecisionTimeout:    config.DefaultDecisionTimeout,
		LibraryBackend:     backend,
		Autosave:           config.DefaultAutosave(),
		WeightTolerance:    0.01,
		RefreshSchedule:    "*/30 * * * * *",
		ComparisonTimeout:  config.DefaultComparisonTimeout,
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)

	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Close)

	assert.NotNil(t, container.LibraryDB)
	assert.NotNil(t, container.CacheDB)
	assert.Nil(t, container.BadgerStore)
	assert.NotNil(t, container.Library)
	assert.NotNil(t, container.DecisionClient)
	assert.NotNil(t, container.ResponseCache)
	assert.NotNil(t, container.EventManager)
	assert.NotNil(t, container.Orchestrator)
	require.NotNil(t, container.Scheduler)
	assert.ElementsMatch(t, []string{"refresh_ticks", "client_data_cleanup", "check_wal_checkpoints"}, container.Scheduler.Jobs())
}

func TestWire_BadgerLibraryPersists(t *testing.T) {
	cfg := testConfig(t, config.BackendBadger)
	cfg.RefreshSchedule = ""
	ctx := context.Background()

	container, err := Wire(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, container.LibraryDB)
	require.NotNil(t, container.BadgerStore)
	assert.NotContains(t, container.Scheduler.Jobs(), "refresh_ticks")

	_, err = container.Library.SavePolicy(ctx, domain.AllocationPolicy{Name: "steady", AllocatorVersion: domain.AllocatorV2})
	require.NoError(t, err)
	container.Close()

	reopened, err := Wire(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(reopened.Close)

	_, ok := reopened.Library.Policies.FindByName(ctx, "steady")
	assert.True(t, ok)
}
