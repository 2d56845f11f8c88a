package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DESK_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.LibraryBackend)
	assert.Equal(t, DefaultAutosave(), cfg.Autosave)
	assert.Equal(t, time.Duration(0), cfg.Autosave.RiskPosture)
	assert.Equal(t, 800*time.Millisecond, cfg.Autosave.Portfolio)
	assert.Equal(t, 0.01, cfg.WeightTolerance)
	assert.Equal(t, 30*time.Second, cfg.DecisionTimeout)
	assert.Contains(t, cfg.LibraryPath(), "library.db")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DESK_DATA_DIR", t.TempDir())
	t.Setenv("DESK_PORT", "9100")
	t.Setenv("LIBRARY_BACKEND", "badger")
	t.Setenv("AUTOSAVE_INFLOW_MS", "50")
	t.Setenv("DECISION_TIMEOUT", "5")
	t.Setenv("COMPARISON_TIMEOUT", "45s")
	t.Setenv("REFRESH_SCHEDULE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, BackendBadger, cfg.LibraryBackend)
	assert.Contains(t, cfg.LibraryPath(), "library.badger")
	assert.Equal(t, 50*time.Millisecond, cfg.Autosave.Inflow)
	assert.Equal(t, 5*time.Second, cfg.DecisionTimeout)
	assert.Equal(t, 45*time.Second, cfg.ComparisonTimeout)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:               8010,
			DecisionServiceURL: "http://localhost:9000",
			DecisionTimeout:    time.Second,
			LibraryBackend:     BackendSQLite,
			Autosave:           DefaultAutosave(),
			WeightTolerance:    0.01,
			RefreshSchedule:    "@every 1m",
			ComparisonTimeout:  time.Minute,
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"port":           func(c *Config) { c.Port = 0 },
		"url":            func(c *Config) { c.DecisionServiceURL = "localhost" },
		"backend":        func(c *Config) { c.LibraryBackend = "postgres" },
		"negative delay": func(c *Config) { c.Autosave.Regime = -time.Second },
		"tolerance":      func(c *Config) { c.WeightTolerance = 1 },
		"schedule":       func(c *Config) { c.RefreshSchedule = "every now and then" },
		"rps":            func(c *Config) { c.DecisionRPS = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
