package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aristath/sentinel-desk/internal/draft"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commitRecorder struct {
	mu     sync.Mutex
	calls  []string
	scopes []string
	err    error
}

func (r *commitRecorder) commit(_ context.Context, scope string, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, value)
	r.scopes = append(r.scopes, scope)
	return r.err
}

func (r *commitRecorder) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newTestScheduler(t *testing.T, delay time.Duration, rec *commitRecorder) (*Scheduler[string], *draft.Scoped[string], *ManualClock) {
	t.Helper()
	clock := NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	d := draft.New[string]()
	s := New(Options[string]{
		Field:  "portfolio",
		Delay:  delay,
		Draft:  d,
		Commit: rec.commit,
		Clock:  clock,
		Log:    zerolog.Nop(),
	})
	t.Cleanup(s.Close)
	return s, d, clock
}

func TestScheduler_TrailingDebounceCommitsFinalValueOnce(t *testing.T) {
	rec := &commitRecorder{}
	s, d, clock := newTestScheduler(t, 800*time.Millisecond, rec)

	d.Edit("first")
	s.Schedule("scn-1")
	clock.Advance(500 * time.Millisecond)

	d.Edit("second")
	s.Schedule("scn-1")
	clock.Advance(500 * time.Millisecond)
	assert.Empty(t, rec.values(), "timer restarted by the second edit")

	clock.Advance(300 * time.Millisecond)

	assert.Equal(t, []string{"second"}, rec.values())
	assert.False(t, d.Touched())
	assert.Equal(t, StateSaved, s.Status().State)
}

func TestScheduler_LoadedValueNeverCommits(t *testing.T) {
	rec := &commitRecorder{}
	s, d, clock := newTestScheduler(t, 400*time.Millisecond, rec)

	d.Load("from-server")
	s.Schedule("scn-1")
	clock.Advance(time.Second)

	assert.Empty(t, rec.values())
	assert.Equal(t, StateIdle, s.Status().State)
}

func TestScheduler_AbsentValueSchedulesNothing(t *testing.T) {
	rec := &commitRecorder{}
	s, _, clock := newTestScheduler(t, 0, rec)

	s.Schedule("scn-1")

	assert.Equal(t, 0, clock.Pending())
	assert.False(t, s.Status().Pending)
}

func TestScheduler_ZeroDelayCommitsOnNextTurn(t *testing.T) {
	rec := &commitRecorder{}
	s, d, clock := newTestScheduler(t, 0, rec)

	d.Edit("aggressive")
	s.Schedule("scn-1")
	assert.True(t, s.Status().Pending)

	clock.Advance(0)

	assert.Equal(t, []string{"aggressive"}, rec.values())
}

func TestScheduler_FailureKeepsTouchedAndSurfacesMessage(t *testing.T) {
	rec := &commitRecorder{err: errors.New("connection refused")}
	var reported error
	clock := NewManualClock(time.Now())
	d := draft.New[string]()
	s := New(Options[string]{
		Field:   "constraints",
		Delay:   100 * time.Millisecond,
		Draft:   d,
		Commit:  rec.commit,
		Clock:   clock,
		Log:     zerolog.Nop(),
		OnError: func(scope string, err error) { reported = err },
	})
	defer s.Close()

	d.Edit("v1")
	s.Schedule("scn-1")
	clock.Advance(100 * time.Millisecond)

	st := s.Status()
	assert.Equal(t, StateError, st.State)
	assert.Contains(t, st.Message, "connection refused")
	assert.Contains(t, st.Message, "constraints")
	assert.True(t, d.Touched())
	require.Error(t, reported)

	// The next edit retries.
	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()
	d.Edit("v2")
	s.Schedule("scn-1")
	clock.Advance(100 * time.Millisecond)

	assert.Equal(t, []string{"v1", "v2"}, rec.values())
	assert.False(t, d.Touched())
	assert.Equal(t, StateSaved, s.Status().State)
}

func TestScheduler_ScopeChangeDiscardsCommit(t *testing.T) {
	rec := &commitRecorder{}
	current := "scn-1"
	clock := NewManualClock(time.Now())
	d := draft.New[string]()
	s := New(Options[string]{
		Field:    "regime",
		Delay:    600 * time.Millisecond,
		Draft:    d,
		Commit:   rec.commit,
		Clock:    clock,
		Log:      zerolog.Nop(),
		Validate: func(scope string) bool { return scope == current },
	})
	defer s.Close()

	d.Edit("edit")
	s.Schedule("scn-1")
	current = "scn-2"
	clock.Advance(time.Second)

	assert.Empty(t, rec.values())
}

func TestScheduler_CancelDropsPendingCommit(t *testing.T) {
	rec := &commitRecorder{}
	s, d, clock := newTestScheduler(t, 400*time.Millisecond, rec)

	d.Edit("edit")
	s.Schedule("scn-1")
	s.Cancel()
	clock.Advance(time.Second)

	assert.Empty(t, rec.values())
	assert.Equal(t, 0, clock.Pending())
}

func TestScheduler_AfterSaveRunsWithScope(t *testing.T) {
	rec := &commitRecorder{}
	var reloaded []string
	clock := NewManualClock(time.Now())
	d := draft.New[string]()
	s := New(Options[string]{
		Field:     "inflow",
		Delay:     400 * time.Millisecond,
		Draft:     d,
		Commit:    rec.commit,
		Clock:     clock,
		Log:       zerolog.Nop(),
		AfterSave: func(ctx context.Context, scope string) { reloaded = append(reloaded, scope) },
	})
	defer s.Close()

	d.Edit("100 EUR")
	s.Schedule("scn-7")
	clock.Advance(400 * time.Millisecond)

	assert.Equal(t, []string{"scn-7"}, reloaded)
}

func TestScheduler_EditDuringCommitStaysTouched(t *testing.T) {
	clock := NewManualClock(time.Now())
	d := draft.New[string]()
	var s *Scheduler[string]
	s = New(Options[string]{
		Field: "portfolio",
		Delay: 100 * time.Millisecond,
		Draft: d,
		Commit: func(ctx context.Context, scope, value string) error {
			if value == "first" {
				d.Edit("second")
			}
			return nil
		},
		Clock: clock,
		Log:   zerolog.Nop(),
	})
	defer s.Close()

	d.Edit("first")
	s.Schedule("scn-1")
	clock.Advance(100 * time.Millisecond)

	assert.True(t, d.Touched(), "the edit made while saving is still unsaved")
}

func TestScheduler_CloseStopsFurtherScheduling(t *testing.T) {
	rec := &commitRecorder{}
	s, d, clock := newTestScheduler(t, 0, rec)

	s.Close()
	d.Edit("late")
	s.Schedule("scn-1")
	clock.Advance(time.Second)

	assert.Empty(t, rec.values())
}
