// Package regime declares the regime fields each allocator version accepts
// and filters regime documents down to the active version's key set.
package regime

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aristath/sentinel-desk/internal/domain"
)

// Kind is the input type of a regime field.
type Kind string

const (
	KindSelect Kind = "select"
	KindNumber Kind = "number"
	KindToggle Kind = "toggle"
	KindJSON   Kind = "json"
)

// ErrUnknownVersion is returned for allocator versions outside v1..v6.
var ErrUnknownVersion = errors.New("unknown allocator version")

// Field declares one regime key.
type Field struct {
	Key     string   `json:"key"`
	Kind    Kind     `json:"kind"`
	Label   string   `json:"label"`
	Options []string `json:"options,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Default any      `json:"default,omitempty"`
}

func unit(key, label string, def float64) Field {
	return Field{Key: key, Kind: KindNumber, Label: label, Min: domain.Float(0), Max: domain.Float(1), Default: def}
}

var (
	regimeType = Field{Key: "regime_type", Kind: KindSelect, Label: "Regime type",
		Options: []string{"trending", "ranging", "volatile", "choppy"}, Default: "ranging"}
	volatilityLevel = Field{Key: "volatility_level", Kind: KindSelect, Label: "Volatility level",
		Options: []string{"low", "normal", "high"}, Default: "normal"}
	liquidityRating = Field{Key: "liquidity_rating", Kind: KindSelect, Label: "Liquidity rating",
		Options: []string{"low", "normal", "high"}, Default: "normal"}
	priceStructure = Field{Key: "price_structure", Kind: KindSelect, Label: "Price structure",
		Options: []string{"trending_up", "trending_down", "range_bound", "breakout", "breakdown"}, Default: "range_bound"}

	riskAppetite     = unit("risk_appetite", "Risk appetite", 0.5)
	momentumStrength = unit("momentum_strength", "Momentum strength", 0.5)
	drawdownLimit    = unit("drawdown_limit", "Drawdown limit", 0.2)
	turnoverBudget   = unit("turnover_budget", "Turnover budget", 0.25)

	rebalanceEnabled = Field{Key: "rebalance_enabled", Kind: KindToggle, Label: "Rebalance enabled", Default: true}
	useHedges        = Field{Key: "use_hedges", Kind: KindToggle, Label: "Use hedges", Default: false}

	sectorTilts     = Field{Key: "sector_tilts", Kind: KindJSON, Label: "Sector tilts"}
	macroOverrides  = Field{Key: "macro_overrides", Kind: KindJSON, Label: "Macro overrides"}
	factorExposures = Field{Key: "factor_exposures", Kind: KindJSON, Label: "Factor exposures"}
)

var schemas = map[domain.AllocatorVersion][]Field{
	domain.AllocatorV1: {regimeType, volatilityLevel, riskAppetite},
	domain.AllocatorV2: {regimeType, volatilityLevel, riskAppetite, liquidityRating, rebalanceEnabled},
	domain.AllocatorV3: {regimeType, volatilityLevel, riskAppetite, liquidityRating, rebalanceEnabled, momentumStrength, sectorTilts},
	domain.AllocatorV4: {regimeType, volatilityLevel, liquidityRating, momentumStrength, drawdownLimit, useHedges, sectorTilts},
	domain.AllocatorV5: {regimeType, volatilityLevel, liquidityRating, momentumStrength, drawdownLimit, useHedges, sectorTilts, priceStructure, macroOverrides},
	domain.AllocatorV6: {regimeType, volatilityLevel, liquidityRating, momentumStrength, drawdownLimit, useHedges, priceStructure, macroOverrides, factorExposures, turnoverBudget},
}

// Versions lists the concrete allocator versions in order.
func Versions() []domain.AllocatorVersion {
	out := make([]domain.AllocatorVersion, 0, len(schemas))
	for v := range schemas {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Fields returns the declared fields of a version ("default" aliases v1).
func Fields(version domain.AllocatorVersion) ([]Field, error) {
	fields, ok := schemas[version.Normalize()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return out, nil
}

// Lookup returns the declaration of key under version.
func Lookup(version domain.AllocatorVersion, key string) (Field, bool) {
	for _, f := range schemas[version.Normalize()] {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Defaults returns a regime populated with each field's default value.
func Defaults(version domain.AllocatorVersion) (domain.Regime, error) {
	fields, err := Fields(version)
	if err != nil {
		return nil, err
	}
	out := make(domain.Regime, len(fields))
	for _, f := range fields {
		if f.Default != nil {
			out[f.Key] = f.Default
		}
	}
	return out, nil
}
