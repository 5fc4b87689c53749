package events

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// Handler streams hub events to one HTTP client
type Handler struct {
	hub *Hub
	// initial is sent right after connecting so the client can render at once
	initial func() any
}

// NewHandler creates an SSE handler. initial may be nil.
func NewHandler(hub *Hub, initial func() any) *Handler {
	return &Handler{hub: hub, initial: initial}
}

// ServeHTTP handles the SSE connection
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.hub.Connect()
	if err != nil {
		http.Error(w, "Failed to establish connection", http.StatusServiceUnavailable)
		return
	}
	defer h.hub.Disconnect(client.ID)

	if h.initial != nil {
		if err := writeEvent(w, rc, EventState, h.initial()); err != nil {
			return
		}
	}

	ctx := r.Context()
	for {
		select {
		case event := <-client.EventChan:
			if err := writeEvent(w, rc, event.Type, event.Data); err != nil {
				log.Printf("⚠️ Failed to write %s event to client %s: %v", event.Type, client.ID, err)
				return
			}
		case <-client.Done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, eventType EventType, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}
	return rc.Flush()
}
