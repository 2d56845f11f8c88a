package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/sentinel-desk/internal/allocdiff"
	"github.com/aristath/sentinel-desk/internal/autosave"
	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/aristath/sentinel-desk/internal/events"
	"github.com/aristath/sentinel-desk/internal/regime"
	"github.com/aristath/sentinel-desk/internal/ticks"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ContextComparison labels ticks produced by policy comparisons.
const ContextComparison = "comparison"

// RunDecision executes one decision on the live session and returns the
// resulting tick. A response without an identifier becomes a synthetic tick.
func (o *Orchestrator) RunDecision(ctx context.Context) (domain.Tick, error) {
	id, mode, err := o.current()
	if err != nil {
		return domain.Tick{}, err
	}

	doc, err := o.svc.RunTick(ctx, id)
	if err != nil {
		o.fail("run decision", err)
		return domain.Tick{}, fmt.Errorf("failed to run decision: %w", err)
	}
	if !o.isCurrent(id) {
		return domain.Tick{}, ErrSessionReplaced
	}

	tick := tickFromResponse(doc, o.clock)
	tick.Context = string(mode)
	o.reconciler.AddLocal(tick)
	o.events.EmitTyped(events.TickRecorded, "session", &events.TickRecordedData{
		SessionID: id,
		TickID:    tick.ID,
		Synthetic: tick.Synthetic,
		Context:   tick.Context,
	})
	o.log.Info().Str("tick_id", tick.ID).Bool("synthetic", tick.Synthetic).Msg("Decision recorded")

	if err := o.refreshTicks(ctx, id); err != nil && !errors.Is(err, ErrSessionReplaced) {
		o.log.Debug().Err(err).Msg("Tick refresh after decision failed")
	}
	if t, ok := o.reconciler.Get(tick.ID); ok {
		return t, nil
	}
	return ticks.Normalize(tick), nil
}

func tickFromResponse(doc map[string]any, clock autosave.Clock) domain.Tick {
	if t, ok := ticks.FromDocument(doc); ok {
		return ticks.Normalize(t)
	}
	return ticks.Synthesize(doc, clock.Now())
}

// Allocation is the current-vs-target view of the latest tick.
type Allocation struct {
	TickID    string                 `json:"tick_id,omitempty"`
	HasTarget bool                   `json:"has_target"`
	Rows      []domain.AllocationRow `json:"rows"`
	Turnover  float64                `json:"turnover"`
}

// Allocation diffs the portfolio draft against the latest tick's target
// weights. Without a tick or target every target is zero.
func (o *Orchestrator) Allocation() Allocation {
	p, _ := o.portfolio.draft.Value()
	current := p.Weights()

	var out Allocation
	var target map[string]float64
	if latest, ok := o.reconciler.Latest(); ok {
		out.TickID = latest.ID
		target, out.HasTarget = allocdiff.ExtractTargetWeights(ticks.DecisionDocument(latest))
	}
	res := allocdiff.Diff(current, target)
	out.Rows = res.Rows
	out.Turnover = res.Turnover
	return out
}

// RunPolicyComparison runs policies a and b against one shared snapshot of
// the current portfolio, each on its own throwaway scenario. It runs to
// completion even if ctx is cancelled and never touches the live session.
func (o *Orchestrator) RunPolicyComparison(ctx context.Context, a, b domain.AllocationPolicy) (domain.AbResult, error) {
	p, ok := o.portfolio.draft.Value()
	if !ok {
		return domain.AbResult{}, ErrNoSession
	}
	p = p.Clone()
	inflow, _ := o.inflow.draft.Value()
	current := p.Weights()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.ComparisonTimeout)
	defer cancel()

	var sideA, sideB domain.AbSide
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := o.runSide(gctx, a, p, inflow, current)
		sideA = s
		return err
	})
	g.Go(func() error {
		s, err := o.runSide(gctx, b, p, inflow, current)
		sideB = s
		return err
	})
	if err := g.Wait(); err != nil {
		o.fail("run comparison", err)
		return domain.AbResult{}, err
	}

	res := domain.AbResult{
		ID:             uuid.New().String(),
		CreatedAt:      o.clock.Now().UTC(),
		CurrentWeights: current,
		A:              sideA,
		B:              sideB,
	}
	o.mu.Lock()
	o.comparisons = append(o.comparisons, res.Clone())
	o.mu.Unlock()

	o.events.EmitTyped(events.ComparisonRecorded, "session", &events.ComparisonRecordedData{
		ComparisonID: res.ID,
		PolicyA:      a.Name,
		PolicyB:      b.Name,
	})
	return res.Clone(), nil
}

func (o *Orchestrator) runSide(ctx context.Context, policy domain.AllocationPolicy, p domain.Portfolio, inflow domain.Inflow, current map[string]float64) (domain.AbSide, error) {
	version := policy.AllocatorVersion.Normalize()
	values, _, err := regime.Sanitize(version, policy.Regime)
	if err != nil {
		return domain.AbSide{}, fmt.Errorf("policy %q: %w", policy.Name, err)
	}
	if err := domain.ValidateConstraints(policy.Constraints); err != nil {
		return domain.AbSide{}, fmt.Errorf("policy %q: %w", policy.Name, err)
	}

	sc, err := o.svc.CreateScenario(ctx, domain.ScenarioConfig{
		Name:             "comparison: " + policy.Name,
		Mode:             domain.ModeProtocol,
		AllocatorVersion: version,
	})
	if err != nil {
		return domain.AbSide{}, fmt.Errorf("failed to create comparison scenario for %q: %w", policy.Name, err)
	}
	if err := o.svc.PutPortfolio(ctx, sc.ID, p.Clone()); err != nil {
		return domain.AbSide{}, fmt.Errorf("failed to put comparison portfolio: %w", err)
	}
	if err := o.svc.PutConstraints(ctx, sc.ID, policy.Constraints.Clone()); err != nil {
		return domain.AbSide{}, fmt.Errorf("failed to put comparison constraints: %w", err)
	}
	if err := o.svc.PutRegime(ctx, sc.ID, version, values); err != nil {
		return domain.AbSide{}, fmt.Errorf("failed to put comparison regime: %w", err)
	}
	if err := o.svc.PutInflow(ctx, sc.ID, inflow); err != nil {
		return domain.AbSide{}, fmt.Errorf("failed to put comparison inflow: %w", err)
	}
	doc, err := o.svc.RunTick(ctx, sc.ID)
	if err != nil {
		return domain.AbSide{}, fmt.Errorf("failed to run comparison decision for %q: %w", policy.Name, err)
	}

	tick := tickFromResponse(doc, o.clock)
	tick.Context = ContextComparison
	target, has := allocdiff.ExtractTargetWeights(ticks.DecisionDocument(tick))
	diff := allocdiff.Diff(current, target)

	o.log.Debug().Str("policy", policy.Name).Str("scenario_id", sc.ID).Str("tick_id", tick.ID).Msg("Comparison side finished")
	return domain.AbSide{
		Policy:     policy,
		ScenarioID: sc.ID,
		Tick:       tick,
		Target:     target,
		HasTarget:  has,
		Rows:       diff.Rows,
		Turnover:   diff.Turnover,
	}, nil
}

// Comparisons returns the recorded comparisons, oldest first.
func (o *Orchestrator) Comparisons() []domain.AbResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]domain.AbResult, len(o.comparisons))
	for i, r := range o.comparisons {
		out[i] = r.Clone()
	}
	return out
}

// Comparison returns one recorded comparison.
func (o *Orchestrator) Comparison(id string) (domain.AbResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, r := range o.comparisons {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return domain.AbResult{}, false
}
