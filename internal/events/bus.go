package events

import (
	"sync"
	"time"
)

// Event is one published notification.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Handler receives events synchronously on the emitting goroutine and must
// not block.
type Handler func(event *Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-process publish/subscribe hub.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[EventType][]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]subscription)}
}

// Subscribe registers handler for one event type and returns a function that
// removes it.
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[eventType]
		for i, s := range list {
			if s.id == id {
				b.subs[eventType] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// SubscribeMany registers handler for several types; the returned function
// removes every registration.
func (b *Bus) SubscribeMany(types []EventType, handler Handler) func() {
	cancels := make([]func(), 0, len(types))
	for _, t := range types {
		cancels = append(cancels, b.Subscribe(t, handler))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// Emit delivers an event to the current subscribers of its type.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[eventType]))
	for _, s := range b.subs[eventType] {
		handlers = append(handlers, s.handler)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// SubscriberCount returns the number of handlers for a type.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}
