package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aristath/sentinel-desk/internal/domain"
)

// CreateScenario creates a remote scenario and returns it (at least its id).
func (c *Client) CreateScenario(ctx context.Context, cfg domain.ScenarioConfig) (domain.Scenario, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "create_scenario", http.MethodPost, "/scenarios", cfg, &raw); err != nil {
		return domain.Scenario{}, err
	}
	scn, err := decodeScenario(raw)
	if err != nil {
		return domain.Scenario{}, err
	}
	if scn.ID == "" {
		return domain.Scenario{}, fmt.Errorf("failed to create scenario: response carried no id")
	}
	return scn, nil
}

// GetScenario fetches a scenario with all its sub-resources.
func (c *Client) GetScenario(ctx context.Context, id string) (domain.Scenario, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "get_scenario", http.MethodGet, scenarioPath(id), nil, &raw); err != nil {
		return domain.Scenario{}, err
	}
	return decodeScenario(raw)
}

func decodeScenario(raw json.RawMessage) (domain.Scenario, error) {
	var scn domain.Scenario
	if len(raw) == 0 {
		return scn, nil
	}
	if err := json.Unmarshal(unwrap(raw, "scenario"), &scn); err != nil {
		return domain.Scenario{}, fmt.Errorf("failed to parse scenario: %w", err)
	}
	return scn, nil
}

// GetTicks returns the raw tick documents of a scenario. Both a bare array
// and {"ticks": [...]} are accepted.
func (c *Client) GetTicks(ctx context.Context, id string) ([]map[string]any, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "get_ticks", http.MethodGet, scenarioPath(id, "ticks"), nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var docs []map[string]any
	if err := json.Unmarshal(unwrap(raw, "ticks"), &docs); err != nil {
		return nil, fmt.Errorf("failed to parse ticks: %w", err)
	}
	return docs, nil
}

// RunTick executes one decision and returns the raw response document.
func (c *Client) RunTick(ctx context.Context, id string) (map[string]any, error) {
	var doc map[string]any
	if err := c.do(ctx, "run_tick", http.MethodPost, scenarioPath(id, "ticks"), struct{}{}, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// PutPortfolio replaces the scenario portfolio.
func (c *Client) PutPortfolio(ctx context.Context, id string, p domain.Portfolio) error {
	return c.do(ctx, "put_portfolio", http.MethodPut, scenarioPath(id, "portfolio"), p, nil)
}

// PutConstraints replaces the scenario constraints.
func (c *Client) PutConstraints(ctx context.Context, id string, cons domain.Constraints) error {
	return c.do(ctx, "put_constraints", http.MethodPut, scenarioPath(id, "constraints"), cons, nil)
}

// PutInflow replaces the scenario inflow.
func (c *Client) PutInflow(ctx context.Context, id string, in domain.Inflow) error {
	return c.do(ctx, "put_inflow", http.MethodPut, scenarioPath(id, "inflow"), in, nil)
}

// PutRiskPosture sets the scenario risk posture.
func (c *Client) PutRiskPosture(ctx context.Context, id string, rp domain.RiskPosture) error {
	body := map[string]domain.RiskPosture{"risk_posture": rp}
	return c.do(ctx, "put_risk_posture", http.MethodPut, scenarioPath(id, "risk-posture"), body, nil)
}

// PutSectorSentiment replaces the sector sentiment map.
func (c *Client) PutSectorSentiment(ctx context.Context, id string, s domain.SectorSentiment) error {
	if s == nil {
		s = domain.SectorSentiment{}
	}
	return c.do(ctx, "put_sector_sentiment", http.MethodPut, scenarioPath(id, "sector-sentiment"), s, nil)
}

// PutRegime replaces the regime for the given allocator version.
func (c *Client) PutRegime(ctx context.Context, id string, version domain.AllocatorVersion, r domain.Regime) error {
	if r == nil {
		r = domain.Regime{}
	}
	body := map[string]any{"allocator_version": version, "regime": r}
	return c.do(ctx, "put_regime", http.MethodPut, scenarioPath(id, "regime"), body, nil)
}

// PostPerformance reports realized performance and returns the service's
// response document.
func (c *Client) PostPerformance(ctx context.Context, id string, payload map[string]any) (map[string]any, error) {
	var doc map[string]any
	if err := c.do(ctx, "post_performance", http.MethodPost, scenarioPath(id, "performance"), payload, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
