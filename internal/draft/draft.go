// Package draft holds locally edited copies of remote session fields.
package draft

import (
	"errors"
	"sync"
)

// ErrNotLoaded is returned by Update before the draft holds a value to edit.
var ErrNotLoaded = errors.New("draft not loaded")

// Scoped is one editable remote field: the current value plus whether the
// user (as opposed to a load or reset) produced it. Every user edit bumps the
// revision so a completed save can tell whether a newer edit arrived while it
// was in flight.
type Scoped[T any] struct {
	mu       sync.RWMutex
	value    T
	loaded   bool
	touched  bool
	revision uint64
}

// Snapshot is a consistent read of a draft.
type Snapshot[T any] struct {
	Value    T
	Loaded   bool
	Touched  bool
	Revision uint64
}

// New returns an empty, not-yet-loaded draft.
func New[T any]() *Scoped[T] {
	return &Scoped[T]{}
}

// Snapshot returns the current state.
func (d *Scoped[T]) Snapshot() Snapshot[T] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot[T]{Value: d.value, Loaded: d.loaded, Touched: d.touched, Revision: d.revision}
}

// Value returns the value and whether it has been loaded.
func (d *Scoped[T]) Value() (T, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value, d.loaded
}

// Touched reports whether the value holds an unsaved user edit.
func (d *Scoped[T]) Touched() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.touched
}

// Edit records a user edit and returns the new revision.
func (d *Scoped[T]) Edit(v T) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = v
	d.loaded = true
	d.touched = true
	d.revision++
	return d.revision
}

// Update applies fn to the current value as a user edit. fn must not retain
// the value it receives. If fn returns an error the draft is unchanged. A
// draft that was never loaded (or was cleared) rejects the edit with
// ErrNotLoaded: editing the zero value would later overwrite the server copy.
func (d *Scoped[T]) Update(fn func(T) (T, error)) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		return d.revision, ErrNotLoaded
	}
	next, err := fn(d.value)
	if err != nil {
		return d.revision, err
	}
	d.value = next
	d.loaded = true
	d.touched = true
	d.revision++
	return d.revision, nil
}

// Load replaces the value with canonical server state unless the user has
// unsaved edits. It reports whether the value was replaced. A loaded value is
// never touched, so loading can never trigger a save.
func (d *Scoped[T]) Load(v T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.touched {
		return false
	}
	d.value = v
	d.loaded = true
	return true
}

// Reset discards any edit and installs v as untouched state. Used when the
// session is replaced.
func (d *Scoped[T]) Reset(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = v
	d.loaded = true
	d.touched = false
	d.revision++
}

// Clear returns the draft to the not-loaded state.
func (d *Scoped[T]) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero T
	d.value = zero
	d.loaded = false
	d.touched = false
	d.revision++
}

// MarkSaved clears the touched flag if no edit happened after revision.
func (d *Scoped[T]) MarkSaved(revision uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revision != revision {
		return false
	}
	d.touched = false
	return true
}
