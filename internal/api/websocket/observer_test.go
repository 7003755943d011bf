package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ramonehamilton/churn-dashboard/internal/events"
)

func TestNewWebSocketObserver(t *testing.T) {
	hub := NewHub()
	observer := NewWebSocketObserver(hub)

	if observer.hub != hub {
		t.Error("Observer hub reference is incorrect")
	}
	if observer.GetName() != "WebSocketObserver" {
		t.Errorf("Expected name 'WebSocketObserver', got '%s'", observer.GetName())
	}
}

func TestWebSocketObserver_ShouldHandle(t *testing.T) {
	all := NewWebSocketObserver(NewHub())
	for _, eventType := range []string{events.ViewLoading, events.SectionChanged, "custom:event"} {
		if !all.ShouldHandle(eventType) {
			t.Errorf("Expected ShouldHandle(%s) to return true without prefixes", eventType)
		}
	}

	filtered := NewWebSocketObserver(NewHub(), "view:", "section:")
	tests := map[string]bool{
		events.ViewLoading:    true,
		events.ViewRendered:   true,
		events.ViewStale:      true,
		events.SectionChanged: true,
		events.ConfigReloaded: false,
		"custom:event":        false,
	}
	for eventType, want := range tests {
		if got := filtered.ShouldHandle(eventType); got != want {
			t.Errorf("ShouldHandle(%s) = %v, want %v", eventType, got, want)
		}
	}
}

func TestWebSocketObserver_OnEvent_NilHub(t *testing.T) {
	observer := &WebSocketObserver{name: "TestObserver"}

	err := observer.OnEvent(events.Event{Type: events.ViewLoading})
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestWebSocketObserver_OnEvent_StoppedHub(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	observer := NewWebSocketObserver(hub)
	if err := observer.OnEvent(events.Event{Type: events.ViewLoading}); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestWebSocketObserver_OnEvent_TypedPayload(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	conn, server := dial(t, hub, nil)
	defer server.Close()
	defer conn.Close()

	if !waitForClients(hub, 1) {
		t.Fatalf("Expected 1 client, got %d", hub.ClientCount())
	}

	dispatcher := events.NewEventDispatcher()
	dispatcher.Register(NewWebSocketObserver(hub, "view:"))

	dispatcher.Dispatch(events.NewTypedEvent(context.Background(), events.ViewRendered, events.ViewRenderedEvent{
		View:   "clustering",
		LoadID: "load-7",
		Source: "backend",
		Charts: []string{"churn", "sizes"},
	}))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	var received struct {
		Type string                   `json:"type"`
		Data events.ViewRenderedEvent `json:"data"`
		Time time.Time                `json:"time"`
	}
	if err := json.Unmarshal(message, &received); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if received.Type != events.ViewRendered {
		t.Errorf("Expected type %s, got %s", events.ViewRendered, received.Type)
	}
	if received.Data.View != "clustering" || received.Data.LoadID != "load-7" {
		t.Errorf("Unexpected payload: %+v", received.Data)
	}
	if len(received.Data.Charts) != 2 {
		t.Errorf("Expected 2 charts, got %v", received.Data.Charts)
	}
	if received.Time.IsZero() {
		t.Error("Expected the event time to be forwarded")
	}
}

func TestWebSocketObserver_ImplementsInterface(t *testing.T) {
	var _ events.Observer = NewWebSocketObserver(NewHub())
}
