package session

import (
	"context"
	"fmt"

	"github.com/aristath/sentinel-desk/internal/domain"
)

// AdvanceTime moves the scenario clock forward.
func (o *Orchestrator) AdvanceTime(ctx context.Context, spec domain.TimeSpec) (domain.ScenarioTime, error) {
	return o.moveTime(ctx, "advance time", spec, o.svc.AdvanceScenarioTime)
}

// SetTime sets the scenario clock.
func (o *Orchestrator) SetTime(ctx context.Context, spec domain.TimeSpec) (domain.ScenarioTime, error) {
	if spec.At == "" {
		return domain.ScenarioTime{}, &domain.ValidationError{Field: "at", Value: spec.At, Reason: "is required"}
	}
	return o.moveTime(ctx, "set time", spec, o.svc.SetScenarioTime)
}

func (o *Orchestrator) moveTime(ctx context.Context, operation string, spec domain.TimeSpec,
	call func(context.Context, string, domain.TimeSpec) (domain.ScenarioTime, error)) (domain.ScenarioTime, error) {
	id, _, err := o.current()
	if err != nil {
		return domain.ScenarioTime{}, err
	}
	st, err := call(ctx, id, spec)
	if err != nil {
		o.fail(operation, err)
		return domain.ScenarioTime{}, fmt.Errorf("failed to %s: %w", operation, err)
	}
	o.applyTime(id, st, nil)
	_ = o.refreshTicks(ctx, id)
	return st, nil
}

// SimReset rewinds the simulation.
func (o *Orchestrator) SimReset(ctx context.Context) (domain.SimState, error) {
	return o.simulate(ctx, "reset simulation", func(ctx context.Context, id string) (domain.SimState, error) {
		return o.svc.SimReset(ctx, id)
	})
}

// SimStep advances the simulation by params.Steps steps.
func (o *Orchestrator) SimStep(ctx context.Context, params domain.SimParams) (domain.SimState, error) {
	return o.simulate(ctx, "step simulation", func(ctx context.Context, id string) (domain.SimState, error) {
		return o.svc.SimStep(ctx, id, params)
	})
}

// SimRun runs the simulation to completion or params.Until.
func (o *Orchestrator) SimRun(ctx context.Context, params domain.SimParams) (domain.SimState, error) {
	return o.simulate(ctx, "run simulation", func(ctx context.Context, id string) (domain.SimState, error) {
		return o.svc.SimRun(ctx, id, params)
	})
}

func (o *Orchestrator) simulate(ctx context.Context, operation string, call func(context.Context, string) (domain.SimState, error)) (domain.SimState, error) {
	id, mode, err := o.current()
	if err != nil {
		return domain.SimState{}, err
	}
	if mode != domain.ModeSimulation {
		return domain.SimState{}, ErrNotSimulation
	}
	sim, err := call(ctx, id)
	if err != nil {
		o.fail(operation, err)
		return domain.SimState{}, fmt.Errorf("failed to %s: %w", operation, err)
	}
	o.mu.Lock()
	if o.sessionID == id {
		o.simState = &sim
	}
	o.mu.Unlock()
	if err := o.RefreshTicks(ctx); err != nil {
		o.log.Debug().Err(err).Msg("Refresh after simulation call failed")
	}
	return sim, nil
}

// PostPerformance forwards realized performance data for the live session.
func (o *Orchestrator) PostPerformance(ctx context.Context, payload map[string]any) (map[string]any, error) {
	id, _, err := o.current()
	if err != nil {
		return nil, err
	}
	out, err := o.svc.PostPerformance(ctx, id, payload)
	if err != nil {
		o.fail("post performance", err)
		return nil, fmt.Errorf("failed to post performance: %w", err)
	}
	return out, nil
}
