package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/aristath/sentinel-desk/internal/events"
	"github.com/aristath/sentinel-desk/internal/ticks"
	"golang.org/x/sync/errgroup"
)

// CreateSession creates a new remote scenario and makes it the live session.
// Once the scenario exists every pending save of the previous session is
// cancelled and all local session state is discarded. If creation fails the
// previous session stays live with its drafts and pending saves intact. A
// concurrent call while a creation is in flight returns ErrCreateInFlight and
// changes nothing.
func (o *Orchestrator) CreateSession(ctx context.Context, cfg domain.ScenarioConfig) (domain.Scenario, error) {
	if cfg.Mode == "" {
		cfg.Mode = domain.ModeProtocol
	}
	if err := domain.ValidateMode(cfg.Mode); err != nil {
		return domain.Scenario{}, err
	}
	if cfg.Portfolio != nil {
		if err := domain.ValidatePortfolio(*cfg.Portfolio); err != nil {
			return domain.Scenario{}, err
		}
	}
	if cfg.Constraints != nil {
		if err := domain.ValidateConstraints(*cfg.Constraints); err != nil {
			return domain.Scenario{}, err
		}
	}

	o.mu.Lock()
	if o.state == StateCreating {
		o.mu.Unlock()
		return domain.Scenario{}, ErrCreateInFlight
	}
	previous := o.sessionID
	o.state = StateCreating
	o.mu.Unlock()

	sc, err := o.svc.CreateScenario(ctx, cfg)
	if err == nil && sc.ID == "" {
		err = errors.New("decision service returned a scenario without id")
	}
	if err != nil {
		o.mu.Lock()
		o.state = StateAbsent
		if o.sessionID != "" {
			o.state = StateReady
		}
		o.mu.Unlock()
		o.fail("create session", err)
		return domain.Scenario{}, fmt.Errorf("failed to create scenario: %w", err)
	}

	mode := cfg.Mode
	if sc.Mode.Valid() {
		mode = sc.Mode
	}
	// Still creating while the old session's state is torn down, so no edit
	// or commit can slip in between.
	o.mu.Lock()
	o.clearLocked()
	o.sessionID = sc.ID
	o.mode = mode
	o.scenario = sc
	o.mu.Unlock()

	o.resetSessionState()

	o.mu.Lock()
	o.state = StateReloading
	o.mu.Unlock()

	o.log.Info().Str("session_id", sc.ID).Str("mode", string(mode)).Str("previous", previous).Msg("Session created")

	if err := o.reload(ctx, sc.ID); err != nil {
		return sc, fmt.Errorf("failed to load created session: %w", err)
	}
	o.events.EmitTyped(events.SessionCreated, "session", &events.SessionCreatedData{
		SessionID: sc.ID,
		Mode:      string(mode),
		Previous:  previous,
	})
	return o.Scenario(), nil
}

// LoadSession makes id the live session and reloads it. Loading a different
// id than the current one replaces the session exactly like CreateSession.
func (o *Orchestrator) LoadSession(ctx context.Context, id string) (domain.Scenario, error) {
	if id == "" {
		return domain.Scenario{}, &domain.ValidationError{Field: "session_id", Value: id, Reason: "is required"}
	}

	o.mu.Lock()
	if o.state == StateCreating {
		o.mu.Unlock()
		return domain.Scenario{}, ErrCreateInFlight
	}
	previous := o.sessionID
	replaced := previous != id
	if replaced {
		o.clearLocked()
		o.sessionID = id
		o.mode = ""
	}
	o.state = StateReloading
	o.mu.Unlock()

	if replaced {
		o.resetSessionState()
	}

	if err := o.reload(ctx, id); err != nil {
		if replaced && !errors.Is(err, ErrSessionReplaced) {
			o.mu.Lock()
			if o.sessionID == id {
				o.clearLocked()
				o.mode = domain.ModeProtocol
				o.state = StateAbsent
			}
			o.mu.Unlock()
		}
		return domain.Scenario{}, fmt.Errorf("failed to load session: %w", err)
	}

	o.mu.RLock()
	mode := o.mode
	o.mu.RUnlock()
	data := &events.SessionLoadedData{SessionID: id, Mode: string(mode)}
	if replaced {
		data.Previous = previous
	}
	o.events.EmitTyped(events.SessionLoaded, "session", data)
	return o.Scenario(), nil
}

// Reload re-fetches the live session. Drafts touched by the user are kept.
func (o *Orchestrator) Reload(ctx context.Context) error {
	id, _, err := o.current()
	if err != nil {
		return err
	}
	return o.reload(ctx, id)
}

func (o *Orchestrator) clearLocked() {
	o.sessionID = ""
	o.scenario = domain.Scenario{}
	o.scenarioTime = domain.ScenarioTime{}
	o.simState = nil
	o.message = ""
	o.weightsWarning = ""
	o.regimeWarning = ""
	o.haveServerTicks = false
}

// reload fetches scenario, ticks and time concurrently. Only the scenario is
// required; tick and time failures degrade to the last known good state.
// The result is discarded if the session changed meanwhile.
func (o *Orchestrator) reload(ctx context.Context, id string) error {
	o.mu.Lock()
	if o.sessionID != id || id == "" {
		o.mu.Unlock()
		return ErrSessionReplaced
	}
	if o.state == StateReady {
		o.state = StateReloading
	}
	o.mu.Unlock()

	var (
		sc       domain.Scenario
		docs     []map[string]any
		ticksErr error
		st       domain.ScenarioTime
		timeErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := o.svc.GetScenario(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to get scenario: %w", err)
		}
		sc = s
		return nil
	})
	g.Go(func() error {
		docs, ticksErr = o.svc.GetTicks(gctx, id)
		return nil
	})
	g.Go(func() error {
		st, timeErr = o.svc.GetScenarioTime(gctx, id)
		return nil
	})
	if err := g.Wait(); err != nil {
		o.finishReload(id)
		if o.isCurrent(id) {
			o.fail("load session", err)
		}
		return err
	}

	o.mu.Lock()
	if o.sessionID != id {
		o.mu.Unlock()
		return ErrSessionReplaced
	}
	if o.mode == "" {
		o.mode = domain.ModeProtocol
		if sc.Mode.Valid() {
			o.mode = sc.Mode
		}
	}
	mode := o.mode
	o.scenario = sc
	o.loadDrafts(sc)
	o.message = ""
	o.mu.Unlock()

	o.applyTicks(id, docs, ticksErr)
	o.applyTime(id, st, timeErr)
	if mode == domain.ModeSimulation {
		o.refreshSim(ctx, id)
	}
	o.updateWeightsWarning()
	o.finishReload(id)
	return nil
}

func (o *Orchestrator) finishReload(id string) {
	o.mu.Lock()
	if o.sessionID == id && o.state == StateReloading {
		o.state = StateReady
	}
	o.mu.Unlock()
}

// loadDrafts installs canonical server values into every draft the user has
// not touched. Missing sub-resources become empty defaults.
func (o *Orchestrator) loadDrafts(sc domain.Scenario) {
	portfolio := domain.Portfolio{Assets: []domain.Asset{}}
	if sc.Portfolio != nil {
		portfolio = sc.Portfolio.Clone()
	}
	constraints := domain.Constraints{}
	if sc.Constraints != nil {
		constraints = sc.Constraints.Clone()
	}
	inflow := domain.Inflow{}
	if sc.Inflow != nil {
		inflow = *sc.Inflow
	}
	posture := sc.RiskPosture
	if posture == "" {
		posture = domain.RiskPostureBalanced
	}
	sentiment := domain.SectorSentiment{}
	if sc.SectorSentiment != nil {
		sentiment = sc.SectorSentiment.Clone()
	}
	rg := RegimeDraft{Version: sc.AllocatorVersion.Normalize(), Values: domain.Regime{}}
	if sc.Regime != nil {
		rg.Values = sc.Regime.Clone()
	}

	o.portfolio.draft.Load(portfolio)
	o.constraints.draft.Load(constraints)
	o.inflow.draft.Load(inflow)
	o.riskPosture.draft.Load(posture)
	o.sentiment.draft.Load(sentiment)
	o.regime.draft.Load(rg)
}

// RefreshTicks re-fetches the tick history and scenario time of the live
// session. Without a session it does nothing.
func (o *Orchestrator) RefreshTicks(ctx context.Context) error {
	id, _, err := o.current()
	if err != nil {
		return nil
	}

	var (
		docs     []map[string]any
		ticksErr error
		st       domain.ScenarioTime
		timeErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, ticksErr = o.svc.GetTicks(gctx, id)
		return nil
	})
	g.Go(func() error {
		st, timeErr = o.svc.GetScenarioTime(gctx, id)
		return nil
	})
	_ = g.Wait()

	if !o.isCurrent(id) {
		return ErrSessionReplaced
	}
	o.applyTicks(id, docs, ticksErr)
	o.applyTime(id, st, timeErr)
	return ticksErr
}

func (o *Orchestrator) refreshTicks(ctx context.Context, id string) error {
	docs, err := o.svc.GetTicks(ctx, id)
	if !o.isCurrent(id) {
		return ErrSessionReplaced
	}
	o.applyTicks(id, docs, err)
	return err
}

// applyTicks reconciles a tick fetch. On failure the last known good list is
// kept; before the first successful fetch the disk cache stands in for it.
func (o *Orchestrator) applyTicks(id string, docs []map[string]any, fetchErr error) {
	stale := false
	if fetchErr != nil {
		o.reconciler.ServerFailed(fetchErr)
		if errors.Is(fetchErr, context.Canceled) {
			return
		}
		o.mu.RLock()
		have := o.haveServerTicks
		o.mu.RUnlock()
		if have || o.cache == nil {
			return
		}
		cached, ok, err := o.cache.StaleTicks(id)
		if err != nil {
			o.log.Warn().Err(err).Msg("Failed to read cached ticks")
			return
		}
		if !ok {
			return
		}
		o.reconciler.ApplyServer(cached)
		stale = true
	} else {
		server := make([]domain.Tick, 0, len(docs))
		for _, doc := range docs {
			t, _ := ticks.FromDocument(doc)
			server = append(server, t)
		}
		o.reconciler.ApplyServer(server)
		o.mu.Lock()
		o.haveServerTicks = true
		o.mu.Unlock()
		if o.cache != nil {
			if err := o.cache.StoreTicks(id, server); err != nil {
				o.log.Warn().Err(err).Msg("Failed to cache ticks")
			}
		}
	}

	o.events.EmitTyped(events.TicksRefreshed, "session", &events.TicksRefreshedData{
		SessionID: id,
		Count:     len(o.reconciler.Visible()),
		Stale:     stale,
	})
}

func (o *Orchestrator) applyTime(id string, st domain.ScenarioTime, fetchErr error) {
	if fetchErr != nil {
		o.log.Warn().Err(fetchErr).Msg("Scenario time fetch failed, keeping last known value")
		if o.cache == nil {
			return
		}
		o.mu.RLock()
		known := o.scenarioTime.Now != ""
		o.mu.RUnlock()
		if known {
			return
		}
		cached, ok, err := o.cache.StaleTime(id)
		if err != nil || !ok {
			return
		}
		st = cached
	} else if o.cache != nil {
		if err := o.cache.StoreTime(id, st); err != nil {
			o.log.Warn().Err(err).Msg("Failed to cache scenario time")
		}
	}

	o.mu.Lock()
	if o.sessionID == id {
		o.scenarioTime = st
	}
	o.mu.Unlock()
}

func (o *Orchestrator) refreshSim(ctx context.Context, id string) {
	sim, err := o.svc.GetSimState(ctx, id)
	if err != nil {
		o.log.Warn().Err(err).Msg("Simulation state fetch failed")
		return
	}
	o.mu.Lock()
	if o.sessionID == id {
		o.simState = &sim
	}
	o.mu.Unlock()
}

// SwitchMode changes the operating mode. Entering simulation on a scenario
// that cannot simulate creates a new simulation scenario seeded with the
// current portfolio and constraints.
func (o *Orchestrator) SwitchMode(ctx context.Context, mode domain.Mode) error {
	if err := domain.ValidateMode(mode); err != nil {
		return err
	}
	id, _, err := o.current()
	if err != nil {
		return err
	}
	previous := ""

	o.mu.RLock()
	sc := o.scenario
	o.mu.RUnlock()

	if mode == domain.ModeSimulation && !sc.SimulationCapable() {
		cfg := domain.ScenarioConfig{
			Name:             sc.Name,
			Mode:             domain.ModeSimulation,
			AllocatorVersion: sc.AllocatorVersion,
		}
		if p, ok := o.portfolio.draft.Value(); ok {
			p = p.Clone()
			cfg.Portfolio = &p
		}
		if c, ok := o.constraints.draft.Value(); ok {
			c = c.Clone()
			cfg.Constraints = &c
		}
		if rg, ok := o.regime.draft.Value(); ok {
			cfg.AllocatorVersion = rg.Version
		}
		created, err := o.CreateSession(ctx, cfg)
		if err != nil {
			return err
		}
		o.log.Info().Str("from", id).Str("to", created.ID).Msg("Switched to simulation scenario")
		previous, id = id, created.ID
	} else {
		o.mu.Lock()
		o.mode = mode
		if mode == domain.ModeProtocol {
			o.simState = nil
		}
		o.mu.Unlock()
		if err := o.reload(ctx, id); err != nil {
			return fmt.Errorf("failed to reload after mode switch: %w", err)
		}
	}

	o.events.EmitTyped(events.ModeSwitched, "session", &events.ModeSwitchedData{
		SessionID: id,
		Mode:      string(mode),
		Previous:  previous,
	})
	return nil
}
