package session

import (
	"context"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/aristath/sentinel-desk/internal/events"
)

// DecisionService is the remote scenario owner.
type DecisionService interface {
	CreateScenario(ctx context.Context, cfg domain.ScenarioConfig) (domain.Scenario, error)
	GetScenario(ctx context.Context, id string) (domain.Scenario, error)
	GetTicks(ctx context.Context, id string) ([]map[string]any, error)
	GetScenarioTime(ctx context.Context, id string) (domain.ScenarioTime, error)
	GetSimState(ctx context.Context, id string) (domain.SimState, error)

	PutPortfolio(ctx context.Context, id string, p domain.Portfolio) error
	PutConstraints(ctx context.Context, id string, c domain.Constraints) error
	PutInflow(ctx context.Context, id string, in domain.Inflow) error
	PutRiskPosture(ctx context.Context, id string, rp domain.RiskPosture) error
	PutSectorSentiment(ctx context.Context, id string, s domain.SectorSentiment) error
	PutRegime(ctx context.Context, id string, version domain.AllocatorVersion, r domain.Regime) error

	RunTick(ctx context.Context, id string) (map[string]any, error)
	PostPerformance(ctx context.Context, id string, payload map[string]any) (map[string]any, error)

	AdvanceScenarioTime(ctx context.Context, id string, spec domain.TimeSpec) (domain.ScenarioTime, error)
	SetScenarioTime(ctx context.Context, id string, spec domain.TimeSpec) (domain.ScenarioTime, error)
	SimReset(ctx context.Context, id string) (domain.SimState, error)
	SimStep(ctx context.Context, id string, params domain.SimParams) (domain.SimState, error)
	SimRun(ctx context.Context, id string, params domain.SimParams) (domain.SimState, error)
}

// EventEmitter publishes session events.
type EventEmitter interface {
	EmitTyped(eventType events.EventType, module string, data events.EventData)
}

// ResponseCache keeps last-known-good responses across restarts.
type ResponseCache interface {
	StoreTicks(scenarioID string, ticks []domain.Tick) error
	StaleTicks(scenarioID string) ([]domain.Tick, bool, error)
	StoreTime(scenarioID string, t domain.ScenarioTime) error
	StaleTime(scenarioID string) (domain.ScenarioTime, bool, error)
}

type noopEmitter struct{}

func (noopEmitter) EmitTyped(events.EventType, string, events.EventData) {}
