package library

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := Open(context.Background(), NewMemoryStore(), zerolog.Nop())
	require.NoError(t, err)
	return lib
}

func TestSavePortfolio_OverwritesByName(t *testing.T) {
	ctx := context.Background()
	lib := openTestLibrary(t)
	p := domain.Portfolio{Assets: []domain.Asset{{ID: "a", CurrentWeight: 1}}}

	first, err := lib.SavePortfolio(ctx, "core", p)
	require.NoError(t, err)
	p.Assets[0].CurrentWeight = 0.5
	second, err := lib.SavePortfolio(ctx, " core ", p)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	list, err := lib.Portfolios.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0.5, list[0].Value.Portfolio.Assets[0].CurrentWeight)
}

func TestSavePortfolio_Validates(t *testing.T) {
	lib := openTestLibrary(t)
	p := domain.Portfolio{Assets: []domain.Asset{{ID: "a"}, {ID: "a"}}}

	_, err := lib.SavePortfolio(context.Background(), "dup", p)

	assert.True(t, domain.IsValidationError(err))
}

func TestSavePolicy_VersionBump(t *testing.T) {
	ctx := context.Background()
	lib := openTestLibrary(t)

	first, err := lib.SavePolicy(ctx, domain.AllocationPolicy{Name: "defensive", AllocatorVersion: domain.AllocatorDefault})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Value.Version)
	assert.Equal(t, domain.AllocatorV1, first.Value.AllocatorVersion)

	second, err := lib.SavePolicy(ctx, domain.AllocationPolicy{Name: "defensive", AllocatorVersion: domain.AllocatorV2})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Value.Version)
}

func TestSavePolicy_RejectsInvertedBounds(t *testing.T) {
	lib := openTestLibrary(t)
	policy := domain.AllocationPolicy{
		Name: "broken",
		Constraints: domain.Constraints{
			MinAssetWeight: domain.Float(0.5),
			MaxAssetWeight: domain.Float(0.1),
		},
	}

	_, err := lib.SavePolicy(context.Background(), policy)

	assert.True(t, domain.IsValidationError(err))
}

func TestPoliciesYAMLRoundTrip(t *testing.T) {
	ctx := context.Background()
	lib := openTestLibrary(t)
	_, err := lib.SavePolicy(ctx, domain.AllocationPolicy{
		Name:             "growth",
		AllocatorVersion: domain.AllocatorV3,
		Constraints:      domain.Constraints{MaxAssetWeight: domain.Float(0.4)},
		Regime:           domain.Regime{"regime_type": "trending", "momentum_strength": 0.7},
	})
	require.NoError(t, err)

	records, err := lib.Policies.List(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportPolicies(&buf, records))
	assert.Contains(t, buf.String(), "max_asset_weight: 0.4")
	assert.Contains(t, buf.String(), "allocator_version: v3")

	imported, err := ImportPolicies(&buf)
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, "growth", imported[0].Name)
	assert.Equal(t, domain.AllocatorV3, imported[0].AllocatorVersion)
	require.NotNil(t, imported[0].Constraints.MaxAssetWeight)
	assert.Equal(t, 0.4, *imported[0].Constraints.MaxAssetWeight)
	assert.Equal(t, "trending", imported[0].Regime["regime_type"])
}

func TestImportPolicies_Errors(t *testing.T) {
	_, err := ImportPolicies(strings.NewReader("policies:\n  - version: 1\n"))
	assert.True(t, domain.IsValidationError(err))

	_, err = ImportPolicies(strings.NewReader("policies:\n  - name: x\n    colour: red\n"))
	assert.Error(t, err, "unknown fields are rejected")

	policies, err := ImportPolicies(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, policies)
}
