package ticks

import (
	"sync"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/rs/zerolog"
)

// Reconciler keeps the displayed tick history for one session: the last
// known good server list, locally added ticks the server has not (yet)
// reported, and the client-side hidden set.
type Reconciler struct {
	mu     sync.RWMutex
	server []domain.Tick
	local  []domain.Tick
	hidden map[string]bool
	merged []domain.Tick
	log    zerolog.Logger
}

// NewReconciler creates an empty reconciler.
func NewReconciler(log zerolog.Logger) *Reconciler {
	return &Reconciler{
		hidden: make(map[string]bool),
		log:    log.With().Str("component", "tick_reconciler").Logger(),
	}
}

// ApplyServer replaces the last known good server list and returns the
// visible history. Local ticks whose id the server now reports are dropped.
func (r *Reconciler) ApplyServer(server []domain.Tick) []domain.Tick {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.server = append([]domain.Tick(nil), server...)
	ids := make(map[string]struct{}, len(server))
	for _, t := range server {
		if t.ID != "" {
			ids[t.ID] = struct{}{}
		}
	}
	kept := r.local[:0]
	for _, t := range r.local {
		if _, reported := ids[t.ID]; !reported {
			kept = append(kept, t)
		}
	}
	r.local = kept

	r.remergeLocked()
	return r.visibleLocked()
}

// ServerFailed re-merges against the last known good server list. Local
// ticks are never dropped because of a failed fetch.
func (r *Reconciler) ServerFailed(err error) []domain.Tick {
	serverFetchFailures.Inc()
	r.log.Warn().Err(err).Msg("Tick fetch failed, keeping last known good list")

	r.mu.Lock()
	defer r.mu.Unlock()
	r.remergeLocked()
	return r.visibleLocked()
}

// AddLocal records a tick produced on this side (a synthetic tick, or an
// identified response not yet visible in the server list).
func (r *Reconciler) AddLocal(t domain.Tick) []domain.Tick {
	if t.ID == "" {
		r.log.Debug().Msg("Ignoring local tick without id")
		return r.Visible()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	replaced := false
	for i := range r.local {
		if r.local[i].ID == t.ID {
			r.local[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		r.local = append(r.local, t)
	}
	r.remergeLocked()
	return r.visibleLocked()
}

// Hide removes a tick from the visible history. Nothing is deleted remotely.
// It reports whether the id was visible.
func (r *Reconciler) Hide(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	visible := false
	for _, t := range r.merged {
		if t.ID == id {
			visible = true
			break
		}
	}
	r.hidden[id] = true
	r.remergeLocked()
	return visible
}

// Hidden returns the number of hidden ids.
func (r *Reconciler) Hidden() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hidden)
}

// Visible returns the merged history, newest first.
func (r *Reconciler) Visible() []domain.Tick {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.visibleLocked()
}

// Latest returns the newest visible tick.
func (r *Reconciler) Latest() (domain.Tick, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.merged) == 0 {
		return domain.Tick{}, false
	}
	return r.merged[0], true
}

// Get returns a visible tick by id.
func (r *Reconciler) Get(id string) (domain.Tick, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.merged {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Tick{}, false
}

// Reset forgets everything, including hidden ids. Used on session change.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.server = nil
	r.local = nil
	r.merged = nil
	r.hidden = make(map[string]bool)
}

func (r *Reconciler) remergeLocked() {
	r.merged = Merge(r.server, r.local, r.hidden)
}

func (r *Reconciler) visibleLocked() []domain.Tick {
	return append([]domain.Tick(nil), r.merged...)
}
