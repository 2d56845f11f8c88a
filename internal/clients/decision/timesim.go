package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aristath/sentinel-desk/internal/domain"
)

// GetScenarioTime fetches the scenario clock.
func (c *Client) GetScenarioTime(ctx context.Context, id string) (domain.ScenarioTime, error) {
	return c.timeCall(ctx, "get_time", http.MethodGet, scenarioPath(id, "time"), nil)
}

// AdvanceScenarioTime moves the scenario clock forward.
func (c *Client) AdvanceScenarioTime(ctx context.Context, id string, spec domain.TimeSpec) (domain.ScenarioTime, error) {
	return c.timeCall(ctx, "advance_time", http.MethodPost, scenarioPath(id, "time", "advance"), spec)
}

// SetScenarioTime sets the scenario clock.
func (c *Client) SetScenarioTime(ctx context.Context, id string, spec domain.TimeSpec) (domain.ScenarioTime, error) {
	return c.timeCall(ctx, "set_time", http.MethodPut, scenarioPath(id, "time"), spec)
}

func (c *Client) timeCall(ctx context.Context, op, method, path string, in any) (domain.ScenarioTime, error) {
	var raw json.RawMessage
	if err := c.do(ctx, op, method, path, in, &raw); err != nil {
		return domain.ScenarioTime{}, err
	}
	var st domain.ScenarioTime
	if len(raw) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(unwrap(raw, "time"), &st); err != nil {
		return domain.ScenarioTime{}, fmt.Errorf("failed to parse scenario time: %w", err)
	}
	return st, nil
}

// GetSimState fetches simulation progress.
func (c *Client) GetSimState(ctx context.Context, id string) (domain.SimState, error) {
	return c.simCall(ctx, "get_sim", http.MethodGet, scenarioPath(id, "sim"), nil)
}

// SimReset rewinds the simulation.
func (c *Client) SimReset(ctx context.Context, id string) (domain.SimState, error) {
	return c.simCall(ctx, "sim_reset", http.MethodPost, scenarioPath(id, "sim", "reset"), struct{}{})
}

// SimStep advances the simulation by params.Steps (service default when 0).
func (c *Client) SimStep(ctx context.Context, id string, params domain.SimParams) (domain.SimState, error) {
	return c.simCall(ctx, "sim_step", http.MethodPost, scenarioPath(id, "sim", "step"), params)
}

// SimRun runs the simulation to completion or params.Until.
func (c *Client) SimRun(ctx context.Context, id string, params domain.SimParams) (domain.SimState, error) {
	return c.simCall(ctx, "sim_run", http.MethodPost, scenarioPath(id, "sim", "run"), params)
}

func (c *Client) simCall(ctx context.Context, op, method, path string, in any) (domain.SimState, error) {
	var raw json.RawMessage
	if err := c.do(ctx, op, method, path, in, &raw); err != nil {
		return domain.SimState{}, err
	}
	var st domain.SimState
	if len(raw) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(unwrap(raw, "sim"), &st); err != nil {
		return domain.SimState{}, fmt.Errorf("failed to parse simulation state: %w", err)
	}
	return st, nil
}
