package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/sentinel-desk/internal/events"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamBuffer      = 100
	heartbeatInterval = 30 * time.Second
	wsWriteTimeout    = 5 * time.Second
)

// EventsStreamHandler streams bus events to clients over Server-Sent Events
// or a WebSocket.
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// subscribe registers a buffered channel for the requested types (all types
// when the filter is empty). Events are dropped rather than blocking the
// emitter when the client falls behind.
func (h *EventsStreamHandler) subscribe(typesFilter string) (<-chan *events.Event, func()) {
	types := events.AllTypes
	if typesFilter != "" {
		types = nil
		for _, t := range strings.Split(typesFilter, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, events.EventType(t))
			}
		}
	}

	eventChan := make(chan *events.Event, streamBuffer)
	unsubscribe := h.eventBus.SubscribeMany(types, func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	})
	return eventChan, unsubscribe
}

func wireEvent(event *events.Event) map[string]interface{} {
	return map[string]interface{}{
		"type":      string(event.Type),
		"module":    event.Module,
		"timestamp": event.Timestamp.Format(time.RFC3339),
		"data":      event.Data,
	}
}

func heartbeat() map[string]interface{} {
	return map[string]interface{}{
		"type":      "heartbeat",
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	typesFilter := r.URL.Query().Get("types")
	eventChan, unsubscribe := h.subscribe(typesFilter)
	defer unsubscribe()

	h.log.Info().Str("types_filter", typesFilter).Msg("Client connected to event stream")

	fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	}))
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(wireEvent(event)))
			flusher.Flush()

		case <-ticker.C:
			fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(heartbeat()))
			flusher.Flush()
		}
	}
}

// ServeWebSocket handles GET /api/events/ws. The stream is one-way; anything
// the client sends is discarded.
func (h *EventsStreamHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	typesFilter := r.URL.Query().Get("types")
	eventChan, unsubscribe := h.subscribe(typesFilter)
	defer unsubscribe()

	ctx := conn.CloseRead(r.Context())
	h.log.Info().Str("types_filter", typesFilter).Msg("Client connected to event websocket")

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		var msg map[string]interface{}
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event websocket")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-eventChan:
			msg = wireEvent(event)
		case <-ticker.C:
			msg = heartbeat()
		}

		if err := h.writeWS(ctx, conn, msg); err != nil {
			h.log.Debug().Err(err).Msg("WebSocket write failed")
			return
		}
	}
}

func (h *EventsStreamHandler) writeWS(ctx context.Context, conn *websocket.Conn, msg map[string]interface{}) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}

// encodeEvent encodes an event map to JSON string.
func (h *EventsStreamHandler) encodeEvent(event map[string]interface{}) string {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return `{"error":"failed to encode event"}`
	}
	return string(data)
}
