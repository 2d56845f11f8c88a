package clientdata

import (
	"encoding/json"
	"fmt"

	"github.com/aristath/sentinel-desk/internal/domain"
)

// ResponseCache stores the typed responses the session reloads from.
type ResponseCache struct {
	repo *Repository
}

// NewResponseCache wraps a repository.
func NewResponseCache(repo *Repository) *ResponseCache {
	return &ResponseCache{repo: repo}
}

// StoreTicks caches the server tick list of a scenario.
func (c *ResponseCache) StoreTicks(scenarioID string, ticks []domain.Tick) error {
	return c.repo.Store(TableScenarioTicks, scenarioID, ticks, TTLScenarioTicks)
}

// StaleTicks returns the cached tick list even if expired. ok is false when
// nothing was cached.
func (c *ResponseCache) StaleTicks(scenarioID string) ([]domain.Tick, bool, error) {
	data, err := c.repo.Get(TableScenarioTicks, scenarioID)
	if err != nil || data == nil {
		return nil, false, err
	}
	var ticks []domain.Tick
	if err := json.Unmarshal(data, &ticks); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached ticks: %w", err)
	}
	return ticks, true, nil
}

// StoreTime caches the scenario clock.
func (c *ResponseCache) StoreTime(scenarioID string, t domain.ScenarioTime) error {
	return c.repo.Store(TableScenarioTime, scenarioID, t, TTLScenarioTime)
}

// StaleTime returns the cached scenario clock even if expired.
func (c *ResponseCache) StaleTime(scenarioID string) (domain.ScenarioTime, bool, error) {
	data, err := c.repo.Get(TableScenarioTime, scenarioID)
	if err != nil || data == nil {
		return domain.ScenarioTime{}, false, err
	}
	var t domain.ScenarioTime
	if err := json.Unmarshal(data, &t); err != nil {
		return domain.ScenarioTime{}, false, fmt.Errorf("failed to unmarshal cached time: %w", err)
	}
	return t, true, nil
}
