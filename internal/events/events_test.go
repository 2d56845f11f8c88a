package events

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeEmitUnsubscribe(t *testing.T) {
	bus := NewBus()
	var got []*Event

	cancel := bus.Subscribe(TickRecorded, func(e *Event) { got = append(got, e) })
	bus.Emit(TickRecorded, "session", map[string]interface{}{"tick_id": "t1"})
	bus.Emit(DraftSaved, "session", nil)

	require.Len(t, got, 1)
	assert.Equal(t, TickRecorded, got[0].Type)
	assert.Equal(t, "t1", got[0].Data["tick_id"])
	assert.False(t, got[0].Timestamp.IsZero())

	cancel()
	cancel()
	bus.Emit(TickRecorded, "session", nil)
	assert.Len(t, got, 1)
	assert.Zero(t, bus.SubscriberCount(TickRecorded))
}

func TestBus_SubscribeMany(t *testing.T) {
	bus := NewBus()
	count := 0

	cancel := bus.SubscribeMany(AllTypes, func(*Event) { count++ })
	for _, et := range AllTypes {
		bus.Emit(et, "test", nil)
	}
	cancel()
	bus.Emit(SessionCreated, "test", nil)

	assert.Equal(t, len(AllTypes), count)
}

func TestManager_EmitTypedLogsAndPublishes(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus()
	manager := NewManager(bus, zerolog.New(&buf))
	var received *Event
	bus.Subscribe(DraftSaveFailed, func(e *Event) { received = e })

	manager.EmitTyped(DraftSaveFailed, "autosave", &DraftSaveFailedData{SessionID: "scn-1", Field: "portfolio", Error: "boom"})

	require.NotNil(t, received)
	assert.Equal(t, "portfolio", received.Data["field"])
	assert.Equal(t, "autosave", received.Module)
	assert.Contains(t, buf.String(), `"event_type":"DRAFT_SAVE_FAILED"`)
	assert.Contains(t, buf.String(), `"field":"portfolio"`)
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus()
	manager := NewManager(bus, zerolog.Nop())
	var received *Event
	bus.Subscribe(ErrorOccurred, func(e *Event) { received = e })

	manager.EmitError("session", errors.New("decision service down"), map[string]interface{}{"op": "run_decision"})

	require.NotNil(t, received)
	assert.Equal(t, "decision service down", received.Data["error"])
	assert.Equal(t, "run_decision", received.Data["context"].(map[string]interface{})["op"])
}

func TestEventDataTypes(t *testing.T) {
	cases := map[EventType]EventData{
		SessionCreated:     &SessionCreatedData{},
		SessionLoaded:      &SessionLoadedData{},
		ModeSwitched:       &ModeSwitchedData{},
		DraftSaved:         &DraftSavedData{},
		DraftSaveFailed:    &DraftSaveFailedData{},
		TickRecorded:       &TickRecordedData{},
		TicksRefreshed:     &TicksRefreshedData{},
		ComparisonRecorded: &ComparisonRecordedData{},
		WeightsWarning:     &WeightsWarningData{},
		AuthRequired:       &AuthRequiredData{},
		LibraryChanged:     &LibraryChangedData{},
		ErrorOccurred:      &ErrorEventData{},
	}
	assert.Len(t, cases, len(AllTypes))
	for want, data := range cases {
		assert.Equal(t, want, data.EventType())
	}
}
