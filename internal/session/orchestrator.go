// Package session coordinates one remote scenario: its editable drafts and
// their autosave schedulers, the reconciled tick history, decisions, mode
// switches and throwaway policy comparisons.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/aristath/sentinel-desk/internal/autosave"
	"github.com/aristath/sentinel-desk/internal/clients/decision"
	"github.com/aristath/sentinel-desk/internal/config"
	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/aristath/sentinel-desk/internal/events"
	"github.com/aristath/sentinel-desk/internal/ticks"
	"github.com/rs/zerolog"
)

// State is the lifecycle state of the orchestrator's session.
type State string

const (
	StateAbsent    State = "absent"
	StateCreating  State = "creating"
	StateReady     State = "ready"
	StateReloading State = "reloading"
)

// DefaultComparisonTimeout bounds one policy comparison.
const DefaultComparisonTimeout = 2 * time.Minute

// Options configures an Orchestrator. Service is required.
type Options struct {
	Service           DecisionService
	Events            EventEmitter
	Cache             ResponseCache
	Autosave          config.AutosaveConfig
	WeightTolerance   float64
	ComparisonTimeout time.Duration
	Clock             autosave.Clock
	Log               zerolog.Logger
}

// Orchestrator owns the live session. All exported methods are safe for
// concurrent use. The mutex is never held across remote calls.
type Orchestrator struct {
	svc    DecisionService
	events EventEmitter
	cache  ResponseCache
	clock  autosave.Clock
	opts   Options
	log    zerolog.Logger

	mu              sync.RWMutex
	state           State
	sessionID       string
	mode            domain.Mode
	scenario        domain.Scenario
	scenarioTime    domain.ScenarioTime
	simState        *domain.SimState
	message         string
	weightsWarning  string
	regimeWarning   string
	haveServerTicks bool
	comparisons     []domain.AbResult

	reconciler *ticks.Reconciler

	fields      []saveField
	portfolio   *field[domain.Portfolio]
	constraints *field[domain.Constraints]
	inflow      *field[domain.Inflow]
	riskPosture *field[domain.RiskPosture]
	sentiment   *field[domain.SectorSentiment]
	regime      *field[RegimeDraft]
}

// New creates an orchestrator with no session.
func New(opts Options) *Orchestrator {
	if opts.Events == nil {
		opts.Events = noopEmitter{}
	}
	if opts.Clock == nil {
		opts.Clock = autosave.SystemClock{}
	}
	if opts.WeightTolerance <= 0 {
		opts.WeightTolerance = domain.DefaultWeightTolerance
	}
	if opts.ComparisonTimeout <= 0 {
		opts.ComparisonTimeout = DefaultComparisonTimeout
	}

	log := opts.Log.With().Str("component", "session").Logger()
	o := &Orchestrator{
		svc:        opts.Service,
		events:     opts.Events,
		cache:      opts.Cache,
		clock:      opts.Clock,
		opts:       opts,
		log:        log,
		state:      StateAbsent,
		mode:       domain.ModeProtocol,
		reconciler: ticks.NewReconciler(opts.Log),
	}
	o.initFields()
	return o
}

// Close stops every autosave scheduler. Pending edits are dropped.
func (o *Orchestrator) Close() {
	for _, f := range o.fields {
		f.close()
	}
}

// SessionID returns the current session id, empty when there is none.
func (o *Orchestrator) SessionID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sessionID
}

// Mode returns the operating mode.
func (o *Orchestrator) Mode() domain.Mode {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mode
}

// isCurrent reports whether scope is the live session. While a replacement
// is being created the previous session stays live.
func (o *Orchestrator) isCurrent(scope string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return scope != "" && scope == o.sessionID
}

// current returns the session id and mode, or ErrNoSession.
func (o *Orchestrator) current() (string, domain.Mode, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.sessionID == "" || o.state == StateCreating {
		return "", "", ErrNoSession
	}
	return o.sessionID, o.mode, nil
}

func (o *Orchestrator) setMessage(msg string) {
	o.mu.Lock()
	o.message = msg
	o.mu.Unlock()
}

func (o *Orchestrator) authRequired(operation string) {
	o.setMessage(AuthRequiredMessage)
	o.events.EmitTyped(events.AuthRequired, "session", &events.AuthRequiredData{Operation: operation})
}

// fail turns a remote failure into the status message. Local state is left
// as it was.
func (o *Orchestrator) fail(operation string, err error) {
	if errors.Is(err, decision.ErrUnauthorized) {
		o.authRequired(operation)
		return
	}
	o.setMessage("failed to " + operation + ": " + err.Error())
	o.log.Warn().Err(err).Str("operation", operation).Msg("Remote operation failed")
}

// resetSessionState cancels every pending save and forgets all per-session
// local state.
func (o *Orchestrator) resetSessionState() {
	for _, f := range o.fields {
		f.reset()
	}
	o.reconciler.Reset()
}

// updateWeightsWarning recomputes the weight-sum warning from the portfolio
// draft and emits an event when it changes.
func (o *Orchestrator) updateWeightsWarning() {
	p, _ := o.portfolio.draft.Value()
	msg := p.WeightsWarning(o.opts.WeightTolerance)

	o.mu.Lock()
	changed := msg != o.weightsWarning
	o.weightsWarning = msg
	id := o.sessionID
	o.mu.Unlock()

	if changed {
		o.events.EmitTyped(events.WeightsWarning, "session", &events.WeightsWarningData{
			SessionID: id,
			Sum:       p.WeightSum(),
			Message:   msg,
		})
	}
}
