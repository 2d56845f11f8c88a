// Package autosave persists user-edited drafts to the remote scenario once
// they have settled.
//
// A Scheduler owns one draft field. Every Schedule call (re)arms a trailing
// debounce timer; when it fires, the commit is sent only if the snapshot was
// a user edit, the draft is still touched and the scope (session id) is still
// current. Loads never produce touched values, so a reload can never trigger a
// save loop.
package autosave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/sentinel-desk/internal/draft"
	"github.com/rs/zerolog"
)

// State is the save status of one field.
type State string

const (
	StateIdle   State = "idle"
	StateSaving State = "saving"
	StateSaved  State = "saved"
	StateError  State = "error"
)

// DefaultTimeout bounds one remote commit.
const DefaultTimeout = 15 * time.Second

// Status is what the presentation layer shows next to a field.
type Status struct {
	State   State     `json:"state"`
	Message string    `json:"message,omitempty"`
	SavedAt time.Time `json:"saved_at,omitempty"`
	Pending bool      `json:"pending"`
}

// CommitFunc persists value for scope remotely.
type CommitFunc[T any] func(ctx context.Context, scope string, value T) error

// Options configures a Scheduler.
type Options[T any] struct {
	Field   string
	Delay   time.Duration
	Draft   *draft.Scoped[T]
	Commit  CommitFunc[T]
	Timeout time.Duration
	Clock   Clock
	Log     zerolog.Logger

	// Validate is re-checked when the timer fires; false discards the commit.
	Validate func(scope string) bool
	// AfterSave runs after a successful commit (best-effort reload).
	AfterSave func(ctx context.Context, scope string)
	// OnError is told about failed commits.
	OnError func(scope string, err error)
}

type pendingCommit[T any] struct {
	token uint64
	scope string
	snap  draft.Snapshot[T]
	timer Timer
}

// Scheduler is a trailing-debounce committer for one draft.
type Scheduler[T any] struct {
	opts   Options[T]
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	commitMu sync.Mutex // serializes remote commits for this field

	mu      sync.Mutex
	pending *pendingCommit[T]
	token   uint64
	status  Status
	closed  bool
}

// New creates a scheduler. Draft and Commit are required.
func New[T any](opts Options[T]) *Scheduler[T] {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler[T]{
		opts:   opts,
		log:    opts.Log.With().Str("component", "autosave").Str("field", opts.Field).Logger(),
		ctx:    ctx,
		cancel: cancel,
		status: Status{State: StateIdle},
	}
}

// Field returns the field name.
func (s *Scheduler[T]) Field() string {
	return s.opts.Field
}

// Draft returns the draft this scheduler commits.
func (s *Scheduler[T]) Draft() *draft.Scoped[T] {
	return s.opts.Draft
}

// Schedule snapshots the draft and (re)starts the debounce timer. Any
// earlier pending commit is superseded. An absent (not loaded) value
// schedules nothing.
func (s *Scheduler[T]) Schedule(scope string) {
	snap := s.opts.Draft.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopLocked()
	if !snap.Loaded {
		return
	}

	s.token++
	token := s.token
	p := &pendingCommit[T]{token: token, scope: scope, snap: snap}
	p.timer = s.opts.Clock.AfterFunc(s.opts.Delay, func() { s.fire(token) })
	s.pending = p
}

// Cancel drops the pending commit, if any, without sending it.
func (s *Scheduler[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Reset cancels any pending commit and returns the status to idle.
func (s *Scheduler[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.status = Status{State: StateIdle}
}

// Close cancels pending work permanently and aborts an in-flight commit.
func (s *Scheduler[T]) Close() {
	s.mu.Lock()
	s.stopLocked()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// Status returns the field's save status.
func (s *Scheduler[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Pending = s.pending != nil
	return st
}

func (s *Scheduler[T]) stopLocked() {
	if s.pending != nil {
		s.pending.timer.Stop()
		s.pending = nil
	}
}

func (s *Scheduler[T]) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *Scheduler[T]) fire(token uint64) {
	s.mu.Lock()
	p := s.pending
	if p == nil || p.token != token || s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.mu.Unlock()

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if !s.valid(p) {
		commitsTotal.WithLabelValues(s.opts.Field, "discarded").Inc()
		return
	}

	s.setStatus(Status{State: StateSaving})

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.Timeout)
	start := time.Now()
	err := s.opts.Commit(ctx, p.scope, p.snap.Value)
	cancel()
	commitDuration.WithLabelValues(s.opts.Field).Observe(time.Since(start).Seconds())

	if err != nil {
		commitsTotal.WithLabelValues(s.opts.Field, "error").Inc()
		s.setStatus(Status{State: StateError, Message: fmt.Sprintf("failed to save %s: %v", s.opts.Field, err)})
		s.log.Warn().Err(err).Str("scope", p.scope).Msg("Draft commit failed, edit kept for retry")
		if s.opts.OnError != nil {
			s.opts.OnError(p.scope, err)
		}
		return
	}

	commitsTotal.WithLabelValues(s.opts.Field, "saved").Inc()
	if !s.opts.Draft.MarkSaved(p.snap.Revision) {
		s.log.Debug().Uint64("revision", p.snap.Revision).Msg("Newer edit arrived during commit, keeping touched")
	}
	s.setStatus(Status{State: StateSaved, SavedAt: s.opts.Clock.Now()})
	s.log.Debug().Str("scope", p.scope).Msg("Draft committed")

	if s.opts.AfterSave != nil {
		s.opts.AfterSave(s.ctx, p.scope)
	}
}

// valid re-checks the guard at fire time: only user edits, only while the
// draft is still touched, only for the scope that was current when scheduled.
func (s *Scheduler[T]) valid(p *pendingCommit[T]) bool {
	if !p.snap.Touched {
		return false
	}
	if !s.opts.Draft.Touched() {
		s.log.Debug().Msg("Draft no longer touched, skipping commit")
		return false
	}
	if s.opts.Validate != nil && !s.opts.Validate(p.scope) {
		s.log.Debug().Str("scope", p.scope).Msg("Scope no longer valid, discarding commit")
		return false
	}
	return true
}
