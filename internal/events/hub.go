// Package events pushes timer changes, completion notifications and sound
// cues to connected popup clients over Server-Sent Events.
package events

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrHubClosed is returned by Connect after Shutdown
var ErrHubClosed = errors.New("event hub is shut down")

// EventType names an SSE event
type EventType string

const (
	EventState        EventType = "state"
	EventNotification EventType = "notification"
	EventSound        EventType = "sound"
	EventHeartbeat    EventType = "heartbeat"
)

// Event is one message delivered to every client
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is one connected SSE stream
type Client struct {
	ID          string
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
}

// Hub fans events out to all connected clients
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	events            chan Event
	heartbeatInterval time.Duration
	stopped           chan struct{}

	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewHub creates a hub. Call Start to begin broadcasting.
func NewHub() *Hub {
	return &Hub{
		clients:           make(map[string]*Client),
		events:            make(chan Event, 100),
		heartbeatInterval: 30 * time.Second,
		stopped:           make(chan struct{}),
	}
}

// Start runs the broadcast loop until ctx is done or the hub is shut down.
// It must be called exactly once.
func (h *Hub) Start(ctx context.Context) {
	defer close(h.stopped)

	log.Printf("📡 Event hub starting")

	heartbeatTicker := time.NewTicker(h.heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case event, ok := <-h.events:
			if !ok {
				h.closeAllClients()
				return
			}
			h.broadcast(event)

		case <-heartbeatTicker.C:
			h.broadcast(Event{Type: EventHeartbeat, Timestamp: time.Now()})

		case <-ctx.Done():
			log.Printf("📡 Event hub stopping")
			h.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting events and waits for the broadcast loop to exit
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownMu.Lock()
	if h.shutdown {
		h.shutdownMu.Unlock()
		return nil
	}
	h.shutdown = true
	close(h.events)
	h.shutdownMu.Unlock()

	select {
	case <-h.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish queues an event for every client. Events are dropped when the
// queue is full; clients resync from the next state event.
func (h *Hub) Publish(eventType EventType, data any) {
	h.shutdownMu.RLock()
	defer h.shutdownMu.RUnlock()

	if h.shutdown {
		return
	}

	select {
	case h.events <- Event{Type: eventType, Data: data, Timestamp: time.Now()}:
	default:
		log.Printf("⚠️ Event queue full, dropping %s event", eventType)
	}
}

// Connect registers a new client
func (h *Hub) Connect() (*Client, error) {
	h.shutdownMu.RLock()
	defer h.shutdownMu.RUnlock()

	if h.shutdown {
		return nil, ErrHubClosed
	}

	client := &Client{
		ID:          uuid.NewString(),
		ConnectedAt: time.Now(),
		EventChan:   make(chan Event, 16),
		Done:        make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	log.Printf("📡 Client %s connected (%d total)", client.ID, h.ClientCount())
	return client, nil
}

// Disconnect removes a client and closes its Done channel
func (h *Hub) Disconnect(clientID string) {
	h.mu.Lock()
	client, ok := h.clients[clientID]
	if ok {
		delete(h.clients, clientID)
		close(client.Done)
	}
	h.mu.Unlock()

	if ok {
		log.Printf("📡 Client %s disconnected", clientID)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.EventChan <- event:
		default:
			// Slow client, skip rather than block the loop
			log.Printf("⚠️ Client %s buffer full, dropping %s event", client.ID, event.Type)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		close(client.Done)
		delete(h.clients, id)
	}
}
