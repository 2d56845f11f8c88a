package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus for subscribers.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit publishes an untyped event and logs it.
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	m.bus.Emit(eventType, module, data)
	m.logEvent(eventType, module, data)
}

// EmitTyped publishes a typed event and logs it.
func (m *Manager) EmitTyped(eventType EventType, module string, data EventData) {
	dataMap := convertEventDataToMap(data)
	m.bus.Emit(eventType, module, dataMap)
	m.logEvent(eventType, module, dataMap)
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.EmitTyped(ErrorOccurred, module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}

func (m *Manager) logEvent(eventType EventType, module string, data map[string]interface{}) {
	eventJSON, _ := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	})
	m.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}
	return result
}
