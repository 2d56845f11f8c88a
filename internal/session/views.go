package session

import (
	"github.com/aristath/sentinel-desk/internal/autosave"
	"github.com/aristath/sentinel-desk/internal/domain"
)

// Status is the session summary shown by the presentation layer.
type Status struct {
	State            State                      `json:"state"`
	Mode             domain.Mode                `json:"mode"`
	SessionID        string                     `json:"session_id,omitempty"`
	Message          string                     `json:"message,omitempty"`
	Warnings         []string                   `json:"warnings"`
	Fields           map[string]autosave.Status `json:"fields"`
	Time             domain.ScenarioTime        `json:"time"`
	Sim              *domain.SimState           `json:"sim,omitempty"`
	AllocatorVersion domain.AllocatorVersion    `json:"allocator_version,omitempty"`
	HiddenTicks      int                        `json:"hidden_ticks"`
}

// Status returns the current session summary.
func (o *Orchestrator) Status() Status {
	fields := make(map[string]autosave.Status, len(o.fields))
	for _, f := range o.fields {
		fields[f.fieldName()] = f.status()
	}

	o.mu.RLock()
	st := Status{
		State:       o.state,
		Mode:        o.mode,
		SessionID:   o.sessionID,
		Message:     o.message,
		Warnings:    []string{},
		Fields:      fields,
		Time:        o.scenarioTime,
		HiddenTicks: o.reconciler.Hidden(),
	}
	if o.simState != nil {
		sim := *o.simState
		st.Sim = &sim
	}
	if o.weightsWarning != "" {
		st.Warnings = append(st.Warnings, o.weightsWarning)
	}
	if o.regimeWarning != "" {
		st.Warnings = append(st.Warnings, o.regimeWarning)
	}
	o.mu.RUnlock()

	if rg, ok := o.regime.draft.Value(); ok {
		st.AllocatorVersion = rg.Version
	}
	return st
}

// Drafts is the editable state of the live session.
type Drafts struct {
	Portfolio       domain.Portfolio       `json:"portfolio"`
	Constraints     domain.Constraints     `json:"constraints"`
	Inflow          domain.Inflow          `json:"inflow"`
	RiskPosture     domain.RiskPosture     `json:"risk_posture"`
	SectorSentiment domain.SectorSentiment `json:"sector_sentiment"`
	Regime          RegimeDraft            `json:"regime"`
	Touched         map[string]bool        `json:"touched"`
}

// Drafts returns copies of every draft value.
func (o *Orchestrator) Drafts() Drafts {
	p, _ := o.portfolio.draft.Value()
	c, _ := o.constraints.draft.Value()
	in, _ := o.inflow.draft.Value()
	rp, _ := o.riskPosture.draft.Value()
	s, _ := o.sentiment.draft.Value()
	rg, _ := o.regime.draft.Value()

	touched := make(map[string]bool, len(o.fields))
	for _, f := range o.fields {
		touched[f.fieldName()] = f.touched()
	}
	return Drafts{
		Portfolio:       p.Clone(),
		Constraints:     c.Clone(),
		Inflow:          in,
		RiskPosture:     rp,
		SectorSentiment: s.Clone(),
		Regime:          rg.Clone(),
		Touched:         touched,
	}
}

// Scenario returns the last loaded canonical scenario.
func (o *Orchestrator) Scenario() domain.Scenario {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.scenario
}

// Ticks returns the visible tick history, newest first.
func (o *Orchestrator) Ticks() []domain.Tick {
	return o.reconciler.Visible()
}

// LatestTick returns the newest visible tick.
func (o *Orchestrator) LatestTick() (domain.Tick, bool) {
	return o.reconciler.Latest()
}

// HideTick hides a tick from the history on this client only. It reports
// whether the tick was visible.
func (o *Orchestrator) HideTick(id string) bool {
	return o.reconciler.Hide(id)
}
