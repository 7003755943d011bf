package websocket

import (
	"log"
	"strings"

	"github.com/ramonehamilton/churn-dashboard/internal/events"
)

// WebSocketObserver forwards dashboard events to WebSocket clients.
type WebSocketObserver struct {
	name     string
	hub      *Hub
	prefixes []string
}

// NewWebSocketObserver creates an observer that broadcasts events whose type
// starts with one of prefixes, or every event when none are given.
func NewWebSocketObserver(hub *Hub, prefixes ...string) *WebSocketObserver {
	return &WebSocketObserver{
		name:     "WebSocketObserver",
		hub:      hub,
		prefixes: prefixes,
	}
}

// OnEvent forwards the event to all connected WebSocket clients.
func (o *WebSocketObserver) OnEvent(event events.Event) error {
	if o.hub == nil {
		log.Printf("[%s] Cannot emit event %s: hub is nil", o.name, event.Type)
		return nil
	}

	if !o.hub.BroadcastEvent(Event{Type: event.Type, Data: event.Data, Time: event.Time}) {
		log.Printf("[%s] Hub stopped, dropped event %s", o.name, event.Type)
	}
	return nil
}

// GetName returns the observer's name.
func (o *WebSocketObserver) GetName() string {
	return o.name
}

// ShouldHandle reports whether eventType matches one of the observer's prefixes.
func (o *WebSocketObserver) ShouldHandle(eventType string) bool {
	if len(o.prefixes) == 0 {
		return true
	}
	for _, p := range o.prefixes {
		if strings.HasPrefix(eventType, p) {
			return true
		}
	}
	return false
}

var _ events.Observer = (*WebSocketObserver)(nil)
