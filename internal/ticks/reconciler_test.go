package ticks

import (
	"errors"
	"testing"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciler_LocalDroppedOnceServerReportsIt(t *testing.T) {
	r := NewReconciler(zerolog.Nop())

	r.AddLocal(domain.Tick{ID: "t1", Timestamp: "2026-01-01T00:00:00Z"})
	r.AddLocal(domain.Tick{ID: "syn", Timestamp: "2026-01-02T00:00:00Z", Synthetic: true})
	visible := r.ApplyServer([]domain.Tick{{ID: "t1", Timestamp: "2026-01-01T00:00:00Z", Metadata: domain.TickMetadata{PlanID: "srv"}}})

	assert.Equal(t, []string{"syn", "t1"}, ids(visible))
	got, ok := r.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "srv", got.Metadata.PlanID)

	// The reported local is gone: a later server list without t1 no longer shows it.
	visible = r.ApplyServer(nil)
	assert.Equal(t, []string{"syn"}, ids(visible))
}

func TestReconciler_FailedFetchKeepsLastKnownGoodAndLocals(t *testing.T) {
	r := NewReconciler(zerolog.Nop())
	r.ApplyServer([]domain.Tick{{ID: "s1", Timestamp: "2026-01-01T00:00:00Z"}})
	r.AddLocal(domain.Tick{ID: "l1", Timestamp: "2026-01-03T00:00:00Z", Synthetic: true})

	visible := r.ServerFailed(errors.New("timeout"))

	assert.Equal(t, []string{"l1", "s1"}, ids(visible))
}

func TestReconciler_HideAndLatest(t *testing.T) {
	r := NewReconciler(zerolog.Nop())
	r.ApplyServer([]domain.Tick{
		{ID: "new", Timestamp: "2026-02-01T00:00:00Z"},
		{ID: "old", Timestamp: "2026-01-01T00:00:00Z"},
	})

	latest, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, "new", latest.ID)

	assert.True(t, r.Hide("new"))
	assert.False(t, r.Hide("missing"))
	assert.Equal(t, 2, r.Hidden())

	latest, ok = r.Latest()
	require.True(t, ok)
	assert.Equal(t, "old", latest.ID)

	// Hidden ids stay hidden across server refreshes.
	r.ApplyServer([]domain.Tick{{ID: "new", Timestamp: "2026-02-01T00:00:00Z"}, {ID: "old"}})
	assert.Equal(t, []string{"old"}, ids(r.Visible()))
}

func TestReconciler_AddLocalIgnoresEmptyID(t *testing.T) {
	r := NewReconciler(zerolog.Nop())

	visible := r.AddLocal(domain.Tick{Timestamp: "2026-01-01T00:00:00Z"})

	assert.Empty(t, visible)
}

func TestReconciler_Reset(t *testing.T) {
	r := NewReconciler(zerolog.Nop())
	r.ApplyServer([]domain.Tick{{ID: "a"}})
	r.AddLocal(domain.Tick{ID: "b"})
	r.Hide("a")

	r.Reset()

	assert.Empty(t, r.Visible())
	assert.Equal(t, 0, r.Hidden())
	_, ok := r.Latest()
	assert.False(t, ok)
}
