package events

// EventData is implemented by every typed payload.
type EventData interface {
	EventType() EventType
}

// SessionData accompanies session lifecycle events.
type SessionData struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode,omitempty"`
	Previous  string `json:"previous_session_id,omitempty"`
}

// SessionCreatedData is emitted once a new session is ready.
type SessionCreatedData SessionData

// EventType returns SessionCreated.
func (d *SessionCreatedData) EventType() EventType { return SessionCreated }

// SessionLoadedData is emitted after every full reload.
type SessionLoadedData SessionData

// EventType returns SessionLoaded.
func (d *SessionLoadedData) EventType() EventType { return SessionLoaded }

// ModeSwitchedData is emitted when the operating mode changes.
type ModeSwitchedData SessionData

// EventType returns ModeSwitched.
func (d *ModeSwitchedData) EventType() EventType { return ModeSwitched }

// DraftSavedData reports a committed draft field.
type DraftSavedData struct {
	SessionID string `json:"session_id"`
	Field     string `json:"field"`
}

// EventType returns DraftSaved.
func (d *DraftSavedData) EventType() EventType { return DraftSaved }

// DraftSaveFailedData reports a failed commit. The edit is kept for retry.
type DraftSaveFailedData struct {
	SessionID string `json:"session_id"`
	Field     string `json:"field"`
	Error     string `json:"error"`
}

// EventType returns DraftSaveFailed.
func (d *DraftSaveFailedData) EventType() EventType { return DraftSaveFailed }

// TickRecordedData reports a newly executed decision.
type TickRecordedData struct {
	SessionID string `json:"session_id"`
	TickID    string `json:"tick_id"`
	Synthetic bool   `json:"synthetic"`
	Context   string `json:"context,omitempty"`
}

// EventType returns TickRecorded.
func (d *TickRecordedData) EventType() EventType { return TickRecorded }

// TicksRefreshedData reports a tick history refresh.
type TicksRefreshedData struct {
	SessionID string `json:"session_id"`
	Count     int    `json:"count"`
	Stale     bool   `json:"stale"`
}

// EventType returns TicksRefreshed.
func (d *TicksRefreshedData) EventType() EventType { return TicksRefreshed }

// ComparisonRecordedData reports a finished policy comparison.
type ComparisonRecordedData struct {
	ComparisonID string `json:"comparison_id"`
	PolicyA      string `json:"policy_a"`
	PolicyB      string `json:"policy_b"`
}

// EventType returns ComparisonRecorded.
func (d *ComparisonRecordedData) EventType() EventType { return ComparisonRecorded }

// WeightsWarningData carries the non-blocking weight-sum warning.
type WeightsWarningData struct {
	SessionID string  `json:"session_id"`
	Sum       float64 `json:"sum"`
	Message   string  `json:"message"`
}

// EventType returns WeightsWarning.
func (d *WeightsWarningData) EventType() EventType { return WeightsWarning }

// AuthRequiredData tells the presentation layer to re-authenticate.
type AuthRequiredData struct {
	Operation string `json:"operation"`
}

// EventType returns AuthRequired.
func (d *AuthRequiredData) EventType() EventType { return AuthRequired }

// LibraryChangedData reports a library mutation.
type LibraryChangedData struct {
	Category string `json:"category"`
	ID       string `json:"id"`
	Action   string `json:"action"`
}

// EventType returns LibraryChanged.
func (d *LibraryChangedData) EventType() EventType { return LibraryChanged }

// ErrorEventData carries an error and optional context.
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns ErrorOccurred.
func (d *ErrorEventData) EventType() EventType { return ErrorOccurred }
