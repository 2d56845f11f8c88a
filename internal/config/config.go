// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Library backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Defaults for the duration settings.
const (
	DefaultDecisionTimeout   = 30 * time.Second
	DefaultComparisonTimeout = 2 * time.Minute
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for local stores (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	DecisionServiceURL   string
	DecisionServiceToken string
	DecisionRPS          float64
	DecisionTimeout      time.Duration

	LibraryBackend string // sqlite or badger

	Autosave        AutosaveConfig
	WeightTolerance float64

	RefreshSchedule   string // cron spec with seconds; empty disables the refresh job
	ComparisonTimeout time.Duration
}

// AutosaveConfig holds the per-field debounce delays.
type AutosaveConfig struct {
	RiskPosture     time.Duration
	Inflow          time.Duration
	Regime          time.Duration
	SectorSentiment time.Duration
	Portfolio       time.Duration
	Constraints     time.Duration
}

// DefaultAutosave returns the stock debounce delays. Discrete choices save
// immediately; free-text fields wait longer.
func DefaultAutosave() AutosaveConfig {
	return AutosaveConfig{
		RiskPosture:     0,
		Inflow:          400 * time.Millisecond,
		Regime:          600 * time.Millisecond,
		SectorSentiment: 600 * time.Millisecond,
		Portfolio:       800 * time.Millisecond,
		Constraints:     800 * time.Millisecond,
	}
}

// Load reads configuration from the environment (and .env when present).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if it doesn't)
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("DESK_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	defaults := DefaultAutosave()
	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("DESK_PORT", 8010),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		DecisionServiceURL:   getEnv("DECISION_SERVICE_URL", "http://localhost:9000"),
		DecisionServiceToken: getEnv("DECISION_SERVICE_TOKEN", ""),
		DecisionRPS:          getEnvAsFloat("DECISION_RPS", 10),
		DecisionTimeout:      getEnvAsDuration("DECISION_TIMEOUT", DefaultDecisionTimeout),

		LibraryBackend: getEnv("LIBRARY_BACKEND", BackendSQLite),

		Autosave: AutosaveConfig{
			RiskPosture:     getEnvAsMillis("AUTOSAVE_RISK_POSTURE_MS", defaults.RiskPosture),
			Inflow:          getEnvAsMillis("AUTOSAVE_INFLOW_MS", defaults.Inflow),
			Regime:          getEnvAsMillis("AUTOSAVE_REGIME_MS", defaults.Regime),
			SectorSentiment: getEnvAsMillis("AUTOSAVE_SECTOR_SENTIMENT_MS", defaults.SectorSentiment),
			Portfolio:       getEnvAsMillis("AUTOSAVE_PORTFOLIO_MS", defaults.Portfolio),
			Constraints:     getEnvAsMillis("AUTOSAVE_CONSTRAINTS_MS", defaults.Constraints),
		},
		WeightTolerance: getEnvAsFloat("WEIGHT_TOLERANCE", 0.01),

		RefreshSchedule:   getEnv("REFRESH_SCHEDULE", "*/30 * * * * *"),
		ComparisonTimeout: getEnvAsDuration("COMPARISON_TIMEOUT", DefaultComparisonTimeout),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid DESK_PORT %d", c.Port)
	}
	u, err := url.Parse(c.DecisionServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid DECISION_SERVICE_URL %q", c.DecisionServiceURL)
	}
	if c.DecisionRPS < 0 {
		return fmt.Errorf("invalid DECISION_RPS %v: must be >= 0", c.DecisionRPS)
	}
	if c.DecisionTimeout <= 0 {
		return fmt.Errorf("invalid DECISION_TIMEOUT %v: must be positive", c.DecisionTimeout)
	}
	if c.LibraryBackend != BackendSQLite && c.LibraryBackend != BackendBadger {
		return fmt.Errorf("invalid LIBRARY_BACKEND %q: must be %s or %s", c.LibraryBackend, BackendSQLite, BackendBadger)
	}
	for name, d := range map[string]time.Duration{
		"AUTOSAVE_RISK_POSTURE_MS":     c.Autosave.RiskPosture,
		"AUTOSAVE_INFLOW_MS":           c.Autosave.Inflow,
		"AUTOSAVE_REGIME_MS":           c.Autosave.Regime,
		"AUTOSAVE_SECTOR_SENTIMENT_MS": c.Autosave.SectorSentiment,
		"AUTOSAVE_PORTFOLIO_MS":        c.Autosave.Portfolio,
		"AUTOSAVE_CONSTRAINTS_MS":      c.Autosave.Constraints,
	} {
		if d < 0 {
			return fmt.Errorf("invalid %s %v: must be >= 0", name, d)
		}
	}
	if c.WeightTolerance < 0 || c.WeightTolerance >= 1 {
		return fmt.Errorf("invalid WEIGHT_TOLERANCE %v: must be in [0, 1)", c.WeightTolerance)
	}
	if c.RefreshSchedule != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.RefreshSchedule); err != nil {
			return fmt.Errorf("invalid REFRESH_SCHEDULE %q: %w", c.RefreshSchedule, err)
		}
	}
	if c.ComparisonTimeout <= 0 {
		return fmt.Errorf("invalid COMPARISON_TIMEOUT %v: must be positive", c.ComparisonTimeout)
	}
	return nil
}

// LibraryPath returns the location of the library store for the backend.
func (c *Config) LibraryPath() string {
	if c.LibraryBackend == BackendBadger {
		return filepath.Join(c.DataDir, "library.badger")
	}
	return filepath.Join(c.DataDir, "library.db")
}

// CachePath returns the location of the response cache database.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration syntax ("30s") or plain seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsMillis(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
