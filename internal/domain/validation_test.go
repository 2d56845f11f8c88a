package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAsset(t *testing.T) {
	speculative := RiskClassSpeculative
	bogus := RiskClass("exotic")

	tests := []struct {
		name      string
		asset     Asset
		wantField string
	}{
		{name: "valid", asset: Asset{ID: "BTC", CurrentWeight: 0.5, RiskClass: &speculative}},
		{name: "missing id", asset: Asset{CurrentWeight: 0.5}, wantField: "id"},
		{name: "weight above one", asset: Asset{ID: "BTC", CurrentWeight: 1.5}, wantField: "current_weight"},
		{name: "negative volatility", asset: Asset{ID: "BTC", Volatility: -0.1}, wantField: "volatility"},
		{name: "unknown risk class", asset: Asset{ID: "BTC", RiskClass: &bogus}, wantField: "risk_class"},
		{name: "nan weight", asset: Asset{ID: "BTC", CurrentWeight: math.NaN()}, wantField: "current_weight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAsset(tt.asset)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestValidatePortfolio_DuplicateID(t *testing.T) {
	err := ValidatePortfolio(Portfolio{Assets: []Asset{{ID: "BTC"}, {ID: "BTC"}}})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "id", verr.Field)
	assert.Contains(t, verr.Error(), "BTC")
}

func TestValidateConstraints(t *testing.T) {
	assert.NoError(t, ValidateConstraints(Constraints{}))
	assert.NoError(t, ValidateConstraints(Constraints{MinAssetWeight: Float(0.05), MaxAssetWeight: Float(0.4)}))

	err := ValidateConstraints(Constraints{MinAssetWeight: Float(0.5), MaxAssetWeight: Float(0.4)})
	assert.True(t, IsValidationError(err))

	err = ValidateConstraints(Constraints{MaxConcentration: Float(2)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "max_concentration", verr.Field)
}

func TestValidateRiskPosture(t *testing.T) {
	assert.NoError(t, ValidateRiskPosture(RiskPostureBalanced))
	assert.Error(t, ValidateRiskPosture("reckless"))
	assert.Error(t, ValidateRiskPosture(""))
}

func TestValidateSectorSentiment(t *testing.T) {
	assert.NoError(t, ValidateSectorSentiment(SectorSentiment{"tech": 0.5, "energy": -1}))
	assert.Error(t, ValidateSectorSentiment(SectorSentiment{"tech": 1.5}))
	assert.Error(t, ValidateSectorSentiment(SectorSentiment{" ": 0}))
}

func TestValidateInflow(t *testing.T) {
	assert.NoError(t, ValidateInflow(Inflow{Amount: 1000, Currency: CurrencyEUR}))
	assert.Error(t, ValidateInflow(Inflow{Amount: -1}))
	assert.Error(t, ValidateInflow(Inflow{Amount: 1, Currency: "EURO"}))
}

func TestParseNumber(t *testing.T) {
	v, err := ParseNumber("current_weight", " 0.25 ")
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)

	_, err = ParseNumber("current_weight", "abc")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "current_weight", verr.Field)
	assert.Equal(t, "abc", verr.Value)

	_, err = ParseNumber("current_weight", "Inf")
	assert.Error(t, err)
}
