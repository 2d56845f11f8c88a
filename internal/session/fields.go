package session

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/sentinel-desk/internal/autosave"
	"github.com/aristath/sentinel-desk/internal/clients/decision"
	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/aristath/sentinel-desk/internal/draft"
	"github.com/aristath/sentinel-desk/internal/events"
	"github.com/aristath/sentinel-desk/internal/regime"
)

// Field names, as shown in Status and events.
const (
	FieldPortfolio       = "portfolio"
	FieldConstraints     = "constraints"
	FieldInflow          = "inflow"
	FieldRiskPosture     = "risk_posture"
	FieldSectorSentiment = "sector_sentiment"
	FieldRegime          = "regime"
)

// reloadTimeout bounds the best-effort reload after a save.
const reloadTimeout = 15 * time.Second

// RegimeDraft is the regime together with the allocator version it targets.
type RegimeDraft struct {
	Version domain.AllocatorVersion `json:"allocator_version"`
	Values  domain.Regime           `json:"regime"`
}

// Clone returns a copy with its own map.
func (r RegimeDraft) Clone() RegimeDraft {
	return RegimeDraft{Version: r.Version, Values: r.Values.Clone()}
}

// field is one editable remote field: its draft and the scheduler that
// persists it.
type field[T any] struct {
	name  string
	draft *draft.Scoped[T]
	saver *autosave.Scheduler[T]
}

// saveField is the type-erased view the orchestrator iterates over.
type saveField interface {
	fieldName() string
	reset()
	close()
	status() autosave.Status
	touched() bool
}

func (f *field[T]) fieldName() string       { return f.name }
func (f *field[T]) status() autosave.Status { return f.saver.Status() }
func (f *field[T]) touched() bool           { return f.draft.Touched() }
func (f *field[T]) close()                  { f.saver.Close() }

func (f *field[T]) reset() {
	f.saver.Reset()
	f.draft.Clear()
}

func newField[T any](o *Orchestrator, name string, delay time.Duration, commit autosave.CommitFunc[T]) *field[T] {
	d := draft.New[T]()
	f := &field[T]{name: name, draft: d}
	f.saver = autosave.New(autosave.Options[T]{
		Field:    name,
		Delay:    delay,
		Draft:    d,
		Commit:   commit,
		Clock:    o.clock,
		Log:      o.log,
		Validate: o.isCurrent,
		AfterSave: func(ctx context.Context, scope string) {
			o.events.EmitTyped(events.DraftSaved, "session", &events.DraftSavedData{SessionID: scope, Field: name})
			o.reloadAfterSave(ctx, scope)
		},
		OnError: func(scope string, err error) {
			o.saveFailed(scope, name, err)
		},
	})
	o.fields = append(o.fields, f)
	return f
}

func (o *Orchestrator) initFields() {
	delays := o.opts.Autosave
	o.portfolio = newField(o, FieldPortfolio, delays.Portfolio, func(ctx context.Context, id string, p domain.Portfolio) error {
		return o.svc.PutPortfolio(ctx, id, p)
	})
	o.constraints = newField(o, FieldConstraints, delays.Constraints, func(ctx context.Context, id string, c domain.Constraints) error {
		return o.svc.PutConstraints(ctx, id, c)
	})
	o.inflow = newField(o, FieldInflow, delays.Inflow, func(ctx context.Context, id string, in domain.Inflow) error {
		return o.svc.PutInflow(ctx, id, in)
	})
	o.riskPosture = newField(o, FieldRiskPosture, delays.RiskPosture, func(ctx context.Context, id string, rp domain.RiskPosture) error {
		return o.svc.PutRiskPosture(ctx, id, rp)
	})
	o.sentiment = newField(o, FieldSectorSentiment, delays.SectorSentiment, func(ctx context.Context, id string, s domain.SectorSentiment) error {
		return o.svc.PutSectorSentiment(ctx, id, s)
	})
	o.regime = newField(o, FieldRegime, delays.Regime, func(ctx context.Context, id string, r RegimeDraft) error {
		values, _, err := regime.Sanitize(r.Version, r.Values)
		if err != nil {
			return err
		}
		return o.svc.PutRegime(ctx, id, r.Version, values)
	})
}

func (o *Orchestrator) saveFailed(scope, name string, err error) {
	if !o.isCurrent(scope) {
		return
	}
	if errors.Is(err, decision.ErrUnauthorized) {
		o.authRequired("save " + name)
		return
	}
	o.setMessage("failed to save " + name + ": " + err.Error())
	o.events.EmitTyped(events.DraftSaveFailed, "session", &events.DraftSaveFailedData{
		SessionID: scope,
		Field:     name,
		Error:     err.Error(),
	})
}

func (o *Orchestrator) reloadAfterSave(ctx context.Context, scope string) {
	if !o.isCurrent(scope) {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()
	if err := o.reload(ctx, scope); err != nil && !errors.Is(err, ErrSessionReplaced) {
		o.log.Warn().Err(err).Str("session_id", scope).Msg("Reload after save failed")
	}
}
