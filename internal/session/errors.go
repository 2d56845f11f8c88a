package session

import (
	"errors"

	"github.com/aristath/sentinel-desk/internal/draft"
)

var (
	// ErrCreateInFlight is returned when a session is already being created.
	// The call is a no-op.
	ErrCreateInFlight = errors.New("session creation already in progress")
	// ErrNoSession is returned by operations that need a ready session.
	ErrNoSession = errors.New("no active session")
	// ErrSessionReplaced is returned when the session changed while an
	// operation was in flight; its result was discarded.
	ErrSessionReplaced = errors.New("session was replaced")
	// ErrNotSimulation is returned by simulation controls outside simulation mode.
	ErrNotSimulation = errors.New("simulation controls require simulation mode")
	// ErrDraftNotLoaded is returned by edits that arrive before the session's
	// server state has been loaded into the drafts.
	ErrDraftNotLoaded = draft.ErrNotLoaded
	// ErrAssetNotFound is returned for unknown asset ids.
	ErrAssetNotFound = errors.New("asset not found")
)

// AuthRequiredMessage is the status message shown after a 401/403.
const AuthRequiredMessage = "re-authentication required"
