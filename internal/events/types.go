// Package events fans session and autosave notifications out to the API
// streams and to the log.
package events

// EventType names an event.
type EventType string

const (
	SessionCreated     EventType = "SESSION_CREATED"
	SessionLoaded      EventType = "SESSION_LOADED"
	ModeSwitched       EventType = "MODE_SWITCHED"
	DraftSaved         EventType = "DRAFT_SAVED"
	DraftSaveFailed    EventType = "DRAFT_SAVE_FAILED"
	TickRecorded       EventType = "TICK_RECORDED"
	TicksRefreshed     EventType = "TICKS_REFRESHED"
	ComparisonRecorded EventType = "COMPARISON_RECORDED"
	WeightsWarning     EventType = "WEIGHTS_WARNING"
	AuthRequired       EventType = "AUTH_REQUIRED"
	LibraryChanged     EventType = "LIBRARY_CHANGED"
	ErrorOccurred      EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type, for subscribers that want everything.
var AllTypes = []EventType{
	SessionCreated,
	SessionLoaded,
	ModeSwitched,
	DraftSaved,
	DraftSaveFailed,
	TickRecorded,
	TicksRefreshed,
	ComparisonRecorded,
	WeightsWarning,
	AuthRequired,
	LibraryChanged,
	ErrorOccurred,
}
