// Package domain provides core domain models and types.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Currency represents a currency code
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
)

// Mode is the operating mode of a session.
type Mode string

const (
	// ModeProtocol runs decisions against the scenario's live clock
	ModeProtocol Mode = "protocol"
	// ModeSimulation runs decisions against a simulation-capable scenario
	ModeSimulation Mode = "simulation"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeProtocol || m == ModeSimulation
}

// RiskClass is the closed risk classification of an asset.
type RiskClass string

const (
	RiskClassLow         RiskClass = "low"
	RiskClassMedium      RiskClass = "medium"
	RiskClassHigh        RiskClass = "high"
	RiskClassSpeculative RiskClass = "speculative"
)

// RiskPosture is the operator's overall risk stance for a session.
type RiskPosture string

const (
	RiskPostureConservative RiskPosture = "conservative"
	RiskPostureBalanced     RiskPosture = "balanced"
	RiskPostureAggressive   RiskPosture = "aggressive"
)

// DefaultWeightTolerance is the allowed distance of the weight sum from 1.0
// before a warning is raised.
const DefaultWeightTolerance = 0.01

// Asset is one line of a portfolio.
type Asset struct {
	ID             string     `json:"id" validate:"required,max=64"`
	Name           string     `json:"name" validate:"max=128"`
	CurrentWeight  float64    `json:"current_weight" validate:"gte=0,lte=1"`
	ExpectedReturn float64    `json:"expected_return"`
	Volatility     float64    `json:"volatility" validate:"gte=0"`
	RiskClass      *RiskClass `json:"risk_class,omitempty" validate:"omitempty,oneof=low medium high speculative"`
}

// Portfolio is an ordered list of assets with an optional total value.
type Portfolio struct {
	Assets     []Asset  `json:"assets"`
	TotalValue *float64 `json:"total_value,omitempty"`
}

// Clone returns a deep copy so drafts never share backing arrays.
func (p Portfolio) Clone() Portfolio {
	out := Portfolio{Assets: make([]Asset, len(p.Assets))}
	for i, a := range p.Assets {
		if a.RiskClass != nil {
			rc := *a.RiskClass
			a.RiskClass = &rc
		}
		out.Assets[i] = a
	}
	if p.TotalValue != nil {
		tv := *p.TotalValue
		out.TotalValue = &tv
	}
	return out
}

// IndexOf returns the position of the asset with the given id, or -1.
func (p Portfolio) IndexOf(id string) int {
	for i, a := range p.Assets {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Weights returns the current weights keyed by asset id.
func (p Portfolio) Weights() map[string]float64 {
	weights := make(map[string]float64, len(p.Assets))
	for _, a := range p.Assets {
		weights[a.ID] += a.CurrentWeight
	}
	return weights
}

// WeightSum returns the sum of current weights.
func (p Portfolio) WeightSum() float64 {
	if len(p.Assets) == 0 {
		return 0
	}
	w := make([]float64, len(p.Assets))
	for i, a := range p.Assets {
		w[i] = a.CurrentWeight
	}
	return floats.Sum(w)
}

// WeightsWarning returns a non-empty message when the weights of a non-empty
// portfolio do not sum to 1 within tolerance. It never blocks an operation.
func (p Portfolio) WeightsWarning(tolerance float64) string {
	if len(p.Assets) == 0 {
		return ""
	}
	sum := p.WeightSum()
	if math.Abs(sum-1.0) <= tolerance {
		return ""
	}
	return fmt.Sprintf("portfolio weights sum to %.4f, expected 1.0 (tolerance %g)", sum, tolerance)
}

// Constraints are optional allocation bounds. A nil bound means unconstrained.
type Constraints struct {
	MinAssetWeight   *float64 `json:"min_asset_weight,omitempty" yaml:"min_asset_weight,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxAssetWeight   *float64 `json:"max_asset_weight,omitempty" yaml:"max_asset_weight,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxConcentration *float64 `json:"max_concentration,omitempty" yaml:"max_concentration,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Clone returns a deep copy.
func (c Constraints) Clone() Constraints {
	return Constraints{
		MinAssetWeight:   cloneFloat(c.MinAssetWeight),
		MaxAssetWeight:   cloneFloat(c.MaxAssetWeight),
		MaxConcentration: cloneFloat(c.MaxConcentration),
	}
}

// Inflow is new capital entering the portfolio on the next decision.
type Inflow struct {
	Amount   float64  `json:"amount" validate:"gte=0"`
	Currency Currency `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// SectorSentiment maps a sector name to a score in [-1, 1].
type SectorSentiment map[string]float64

// Clone returns a copy of the map.
func (s SectorSentiment) Clone() SectorSentiment {
	out := make(SectorSentiment, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// AllocatorVersion tags the remote allocator generation a regime targets.
type AllocatorVersion string

const (
	AllocatorV1      AllocatorVersion = "v1"
	AllocatorV2      AllocatorVersion = "v2"
	AllocatorV3      AllocatorVersion = "v3"
	AllocatorV4      AllocatorVersion = "v4"
	AllocatorV5      AllocatorVersion = "v5"
	AllocatorV6      AllocatorVersion = "v6"
	AllocatorDefault AllocatorVersion = "default"
)

// Normalize resolves the "default" alias and empty value to v1.
func (v AllocatorVersion) Normalize() AllocatorVersion {
	if v == "" || v == AllocatorDefault {
		return AllocatorV1
	}
	return v
}

// Regime holds version-scoped market context fields.
type Regime map[string]any

// Clone returns a shallow copy of the map. Values are JSON scalars or
// decoded JSON documents which are never mutated in place.
func (r Regime) Clone() Regime {
	out := make(Regime, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Scenario is the remote, canonical state of a session.
type Scenario struct {
	ID               string           `json:"id"`
	Name             string           `json:"name,omitempty"`
	Mode             Mode             `json:"mode,omitempty"`
	AllocatorVersion AllocatorVersion `json:"allocator_version,omitempty"`
	Portfolio        *Portfolio       `json:"portfolio,omitempty"`
	Constraints      *Constraints     `json:"constraints,omitempty"`
	Inflow           *Inflow          `json:"inflow,omitempty"`
	RiskPosture      RiskPosture      `json:"risk_posture,omitempty"`
	SectorSentiment  SectorSentiment  `json:"sector_sentiment,omitempty"`
	Regime           Regime           `json:"regime,omitempty"`
	LastTick         string           `json:"last_tick,omitempty"`
}

// SimulationCapable reports whether the scenario may run simulation operations.
func (s Scenario) SimulationCapable() bool {
	return s.Mode == ModeSimulation
}

// ScenarioConfig is the payload used to create a scenario.
type ScenarioConfig struct {
	Name             string           `json:"name,omitempty"`
	Mode             Mode             `json:"mode,omitempty"`
	AllocatorVersion AllocatorVersion `json:"allocator_version,omitempty"`
	Portfolio        *Portfolio       `json:"portfolio,omitempty"`
	Constraints      *Constraints     `json:"constraints,omitempty"`
}

// ScenarioTime is the scenario's wall clock and decision window.
type ScenarioTime struct {
	Now         string `json:"now"`
	WindowStart string `json:"window_start,omitempty"`
	WindowEnd   string `json:"window_end,omitempty"`
}

// TimeSpec moves or sets the scenario clock.
type TimeSpec struct {
	At      string `json:"at,omitempty"`
	Seconds int64  `json:"seconds,omitempty"`
}

// SimState is the progress of a simulation scenario.
type SimState struct {
	Status     string `json:"status"`
	Step       int    `json:"step"`
	TotalSteps int    `json:"total_steps,omitempty"`
	Now        string `json:"now,omitempty"`
}

// SimParams parameterizes simulation step/run calls.
type SimParams struct {
	Steps int    `json:"steps,omitempty"`
	Until string `json:"until,omitempty"`
}

// TickMetadata is the bookkeeping attached to a decision record.
type TickMetadata struct {
	PlanID      string `json:"plan_id,omitempty"`
	WindowStart string `json:"window_start,omitempty"`
	WindowEnd   string `json:"window_end,omitempty"`
}

// Tick is one executed allocation decision.
type Tick struct {
	ID          string             `json:"id"`
	Timestamp   string             `json:"timestamp"`
	Metadata    TickMetadata       `json:"metadata"`
	Payload     map[string]any     `json:"payload,omitempty"`
	Explanation any                `json:"explanation,omitempty"`
	RiskMetrics map[string]float64 `json:"risk_metrics,omitempty"`
	Synthetic   bool               `json:"synthetic,omitempty"`
	// Context is a UI-only execution label, never sent remotely.
	Context string `json:"context,omitempty"`
}

// AllocationRow is one line of a current-vs-target comparison.
type AllocationRow struct {
	ID      string  `json:"id"`
	Current float64 `json:"cur"`
	Target  float64 `json:"tgt"`
	Delta   float64 `json:"delta"`
}

// AllocationPolicy is a saved, reusable bundle of constraints and regime.
type AllocationPolicy struct {
	Name             string           `json:"name" yaml:"name"`
	Version          int              `json:"version" yaml:"version"`
	AllocatorVersion AllocatorVersion `json:"allocator_version" yaml:"allocator_version"`
	Constraints      Constraints      `json:"constraints" yaml:"constraints"`
	Regime           Regime           `json:"regime" yaml:"regime"`
}

// SavedPortfolio is a named portfolio kept in the local library.
type SavedPortfolio struct {
	Name      string    `json:"name"`
	Portfolio Portfolio `json:"portfolio"`
}

// AbSide is one policy's outcome inside a comparison.
type AbSide struct {
	Policy     AllocationPolicy   `json:"policy"`
	ScenarioID string             `json:"scenario_id"`
	Tick       Tick               `json:"tick"`
	Target     map[string]float64 `json:"target,omitempty"`
	HasTarget  bool               `json:"has_target"`
	Rows       []AllocationRow    `json:"rows"`
	Turnover   float64            `json:"turnover"`
}

// AbResult pairs two policies' outputs against one shared weights snapshot.
type AbResult struct {
	ID             string             `json:"id"`
	CreatedAt      time.Time          `json:"created_at"`
	CurrentWeights map[string]float64 `json:"current_weights"`
	A              AbSide             `json:"a"`
	B              AbSide             `json:"b"`
}

// Clone deep-copies the result through JSON so callers cannot mutate the
// recorded snapshot.
func (r AbResult) Clone() AbResult {
	data, err := json.Marshal(r)
	if err != nil {
		return r
	}
	var out AbResult
	if err := json.Unmarshal(data, &out); err != nil {
		return r
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v, for optional numeric fields.
func Float(v float64) *float64 {
	return &v
}
