package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/aristath/sentinel-desk/internal/domain"
)

// fakeService is an in-memory decision service.
type fakeService struct {
	mu        sync.Mutex
	next      int
	scenarios map[string]*domain.Scenario
	ticks     map[string][]map[string]any
	times     map[string]domain.ScenarioTime
	puts      map[string][]string // scenario id -> fields put, in order
	portfolio map[string][]domain.Portfolio

	createErr   error
	getTicksErr error
	getTimeErr  error
	putErr      error
	// runTick builds the decision response; nil echoes an identified tick
	// and records it server side.
	runTick  func(id string) map[string]any
	onCreate func()
	creates  int
	runs     int

	// onGetScenario runs before GetScenario answers, outside the lock.
	onGetScenario func(id string)
}

func newFakeService() *fakeService {
	return &fakeService{
		scenarios: make(map[string]*domain.Scenario),
		ticks:     make(map[string][]map[string]any),
		times:     make(map[string]domain.ScenarioTime),
		puts:      make(map[string][]string),
		portfolio: make(map[string][]domain.Portfolio),
	}
}

func (f *fakeService) CreateScenario(_ context.Context, cfg domain.ScenarioConfig) (domain.Scenario, error) {
	if f.onCreate != nil {
		f.onCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return domain.Scenario{}, f.createErr
	}
	f.next++
	sc := &domain.Scenario{
		ID:               fmt.Sprintf("sc-%d", f.next),
		Name:             cfg.Name,
		Mode:             cfg.Mode,
		AllocatorVersion: cfg.AllocatorVersion,
		Portfolio:        cfg.Portfolio,
		Constraints:      cfg.Constraints,
	}
	f.scenarios[sc.ID] = sc
	f.times[sc.ID] = domain.ScenarioTime{Now: "2026-04-01T12:00:00.000Z"}
	return *sc, nil
}

func (f *fakeService) scenario(id string) (*domain.Scenario, error) {
	sc, ok := f.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("scenario %s not found", id)
	}
	return sc, nil
}

func (f *fakeService) GetScenario(_ context.Context, id string) (domain.Scenario, error) {
	if f.onGetScenario != nil {
		f.onGetScenario(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, err := f.scenario(id)
	if err != nil {
		return domain.Scenario{}, err
	}
	return *sc, nil
}

func (f *fakeService) GetTicks(_ context.Context, id string) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getTicksErr != nil {
		return nil, f.getTicksErr
	}
	return append([]map[string]any(nil), f.ticks[id]...), nil
}

func (f *fakeService) GetScenarioTime(_ context.Context, id string) (domain.ScenarioTime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getTimeErr != nil {
		return domain.ScenarioTime{}, f.getTimeErr
	}
	return f.times[id], nil
}

func (f *fakeService) GetSimState(_ context.Context, id string) (domain.SimState, error) {
	return domain.SimState{Status: "idle"}, nil
}

func (f *fakeService) put(id, field string, apply func(*domain.Scenario)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	sc, err := f.scenario(id)
	if err != nil {
		return err
	}
	apply(sc)
	f.puts[id] = append(f.puts[id], field)
	return nil
}

func (f *fakeService) PutPortfolio(_ context.Context, id string, p domain.Portfolio) error {
	return f.put(id, FieldPortfolio, func(sc *domain.Scenario) {
		cp := p.Clone()
		sc.Portfolio = &cp
		f.portfolio[id] = append(f.portfolio[id], cp)
	})
}

func (f *fakeService) PutConstraints(_ context.Context, id string, c domain.Constraints) error {
	return f.put(id, FieldConstraints, func(sc *domain.Scenario) { sc.Constraints = &c })
}

func (f *fakeService) PutInflow(_ context.Context, id string, in domain.Inflow) error {
	return f.put(id, FieldInflow, func(sc *domain.Scenario) { sc.Inflow = &in })
}

func (f *fakeService) PutRiskPosture(_ context.Context, id string, rp domain.RiskPosture) error {
	return f.put(id, FieldRiskPosture, func(sc *domain.Scenario) { sc.RiskPosture = rp })
}

func (f *fakeService) PutSectorSentiment(_ context.Context, id string, s domain.SectorSentiment) error {
	return f.put(id, FieldSectorSentiment, func(sc *domain.Scenario) { sc.SectorSentiment = s })
}

func (f *fakeService) PutRegime(_ context.Context, id string, v domain.AllocatorVersion, r domain.Regime) error {
	return f.put(id, FieldRegime, func(sc *domain.Scenario) {
		sc.AllocatorVersion = v
		sc.Regime = r
	})
}

func (f *fakeService) RunTick(_ context.Context, id string) (map[string]any, error) {
	f.mu.Lock()
	f.runs++
	build := f.runTick
	f.mu.Unlock()
	if build != nil {
		return build(id), nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	doc := map[string]any{
		"tick_id":   fmt.Sprintf("%s-t%d", id, len(f.ticks[id])+1),
		"timestamp": fmt.Sprintf("2026-04-01T12:%02d:00Z", len(f.ticks[id])),
	}
	f.ticks[id] = append(f.ticks[id], doc)
	return doc, nil
}

func (f *fakeService) PostPerformance(_ context.Context, id string, payload map[string]any) (map[string]any, error) {
	return map[string]any{"accepted": true}, nil
}

func (f *fakeService) AdvanceScenarioTime(_ context.Context, id string, spec domain.TimeSpec) (domain.ScenarioTime, error) {
	return domain.ScenarioTime{Now: "2026-04-01T13:00:00.000Z"}, nil
}

func (f *fakeService) SetScenarioTime(_ context.Context, id string, spec domain.TimeSpec) (domain.ScenarioTime, error) {
	return domain.ScenarioTime{Now: spec.At}, nil
}

func (f *fakeService) SimReset(_ context.Context, id string) (domain.SimState, error) {
	return domain.SimState{Status: "idle"}, nil
}

func (f *fakeService) SimStep(_ context.Context, id string, p domain.SimParams) (domain.SimState, error) {
	return domain.SimState{Status: "paused", Step: p.Steps}, nil
}

func (f *fakeService) SimRun(_ context.Context, id string, p domain.SimParams) (domain.SimState, error) {
	return domain.SimState{Status: "finished", Step: 10, TotalSteps: 10}, nil
}

func (f *fakeService) putsFor(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.puts[id]...)
}

func (f *fakeService) tickCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ticks[id])
}
