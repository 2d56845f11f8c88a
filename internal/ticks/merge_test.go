package ticks

import (
	"testing"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(ts []domain.Tick) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func TestMerge_ExcludesTicksWithoutID(t *testing.T) {
	server := []domain.Tick{{ID: "", Timestamp: "2026-01-02T00:00:00Z"}, {ID: "a", Timestamp: "2026-01-01T00:00:00Z"}}
	local := []domain.Tick{{ID: "", Timestamp: "2026-01-03T00:00:00Z"}}

	merged := Merge(server, local, nil)

	assert.Equal(t, []string{"a"}, ids(merged))
}

func TestMerge_ServerWinsOnCollision(t *testing.T) {
	server := []domain.Tick{{ID: "t1", Timestamp: "2026-01-01T10:00:00Z", Metadata: domain.TickMetadata{PlanID: "server"}}}
	local := []domain.Tick{
		{ID: "t1", Timestamp: "2026-01-01T11:00:00Z", Metadata: domain.TickMetadata{PlanID: "local"}},
		{ID: "t2", Timestamp: "2026-01-01T09:00:00Z"},
	}

	merged := Merge(server, local, nil)

	require.Len(t, merged, 2)
	assert.Equal(t, "t1", merged[0].ID)
	assert.Equal(t, "server", merged[0].Metadata.PlanID)
	assert.Equal(t, "2026-01-01T10:00:00.000Z", merged[0].Timestamp)
	assert.Equal(t, "t2", merged[1].ID)
}

func TestMerge_SortsNewestFirstAcrossFormats(t *testing.T) {
	server := []domain.Tick{
		{ID: "old", Timestamp: "2025-12-31T23:59:59Z"},
		{ID: "fractional", Timestamp: "2026-01-01T00:00:00.5+00:00"},
		{ID: "offset", Timestamp: "2026-01-01T02:00:01+02:00"},
		{ID: "broken", Timestamp: "not a date"},
	}

	merged := Merge(server, nil, nil)

	assert.Equal(t, []string{"offset", "fractional", "old", "broken"}, ids(merged))
	assert.Equal(t, Epoch, merged[3].Timestamp)
}

func TestMerge_StableForEqualTimestamps(t *testing.T) {
	server := []domain.Tick{{ID: "x"}, {ID: "y"}, {ID: "z"}}

	merged := Merge(server, nil, nil)

	assert.Equal(t, []string{"x", "y", "z"}, ids(merged))
}

func TestMerge_HiddenFiltered(t *testing.T) {
	server := []domain.Tick{{ID: "a"}, {ID: "b"}}
	local := []domain.Tick{{ID: "c"}}

	merged := Merge(server, local, map[string]bool{"b": true, "c": true})

	assert.Equal(t, []string{"a"}, ids(merged))
}

func TestMerge_Idempotent(t *testing.T) {
	server := []domain.Tick{
		{ID: "s1", Timestamp: "2026-03-01T08:00:00Z"},
		{ID: "s2", Timestamp: "1772352000"},
		{ID: "", Timestamp: "2026-03-05T08:00:00Z"},
	}
	local := []domain.Tick{
		{ID: "s1", Timestamp: "2026-03-09T08:00:00Z"},
		{ID: "l1", Timestamp: "2026-03-02T08:00:00.250Z", Synthetic: true},
	}
	hidden := map[string]bool{"zz": true}

	once := Merge(server, local, hidden)
	twice := Merge(once, nil, hidden)
	again := Merge(once, once, hidden)

	assert.Equal(t, once, twice)
	assert.Equal(t, once, again)
}
