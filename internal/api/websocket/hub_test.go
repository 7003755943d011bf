package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, hub *Hub, header http.Header) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn, server
}

func waitForClients(hub *Hub, n int) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestNewHub(t *testing.T) {
	hub := NewHub("http://localhost:*")

	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels are not initialized")
	}
	if len(hub.origins) != 1 {
		t.Errorf("Expected 1 origin pattern, got %d", len(hub.origins))
	}
}

func TestHub_BroadcastEvent_NoClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	ok := hub.BroadcastEvent(Event{Type: "view:loading", Data: map[string]string{"view": "overview"}})
	if !ok {
		t.Error("Expected broadcast to succeed on a running hub")
	}
}

func TestHub_BroadcastEvent_Stopped(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()
	hub.Stop() // idempotent

	deadline := time.Now().Add(time.Second)
	for !hub.IsStopped() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.BroadcastEvent(Event{Type: "view:rendered"}) {
		t.Error("Expected broadcast on a stopped hub to fail")
	}

	rec := httptest.NewRecorder()
	hub.ServeWs(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 from stopped hub, got %d", rec.Code)
	}
}

func TestEvent_JSON(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := Event{
		Type: "view:rendered",
		Data: map[string]interface{}{"view": "pca", "charts": 2},
		Time: at,
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}
	if decoded.Type != event.Type {
		t.Errorf("Expected type %s, got %s", event.Type, decoded.Type)
	}
	if !decoded.Time.Equal(at) {
		t.Errorf("Expected time %v, got %v", at, decoded.Time)
	}
	dataMap, ok := decoded.Data.(map[string]interface{})
	if !ok {
		t.Fatal("Expected Data to be a map")
	}
	if charts, ok := dataMap["charts"].(float64); !ok || int(charts) != 2 {
		t.Errorf("Expected charts=2, got %v", dataMap["charts"])
	}
}

func TestHub_WebSocketConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	conn, server := dial(t, hub, nil)
	defer server.Close()
	defer conn.Close()

	if !waitForClients(hub, 1) {
		t.Fatalf("Expected 1 client, got %d", hub.ClientCount())
	}

	hub.BroadcastEvent(Event{Type: "section:changed", Data: map[string]string{"active": "pca"}})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	var received Event
	if err := json.Unmarshal(message, &received); err != nil {
		t.Fatalf("Failed to unmarshal received message: %v", err)
	}
	if received.Type != "section:changed" {
		t.Errorf("Expected type section:changed, got %s", received.Type)
	}
	if received.Time.IsZero() {
		t.Error("Expected broadcast to stamp the event time")
	}
}

func TestHub_MultipleClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect client %d: %v", i, err)
		}
		conns = append(conns, conn)
	}
	defer func() {
		for _, conn := range conns {
			conn.Close()
		}
	}()

	if !waitForClients(hub, 3) {
		t.Fatalf("Expected 3 clients, got %d", hub.ClientCount())
	}

	hub.BroadcastEvent(Event{Type: "view:error", Data: map[string]string{"view": "models"}})

	for i, conn := range conns {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("Client %d failed to read message: %v", i, err)
			continue
		}
		var received Event
		if err := json.Unmarshal(message, &received); err != nil {
			t.Errorf("Client %d failed to unmarshal message: %v", i, err)
			continue
		}
		if received.Type != "view:error" {
			t.Errorf("Client %d expected type view:error, got %s", i, received.Type)
		}
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	conn, server := dial(t, hub, nil)
	defer server.Close()

	if !waitForClients(hub, 1) {
		t.Fatalf("Expected 1 client after connect, got %d", hub.ClientCount())
	}

	conn.Close()

	if !waitForClients(hub, 0) {
		t.Errorf("Expected 0 clients after disconnect, got %d", hub.ClientCount())
	}
}

func TestHub_CheckOrigin(t *testing.T) {
	hub := NewHub("http://localhost:*", "https://dashboard.example.com")

	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin", "", "localhost:8080", true},
		{"same host", "http://10.0.0.5:8080", "10.0.0.5:8080", true},
		{"localhost any port", "http://localhost:3000", "127.0.0.1:8080", true},
		{"exact match", "https://dashboard.example.com", "127.0.0.1:8080", true},
		{"foreign", "http://evil.example.com", "localhost:8080", false},
		{"scheme mismatch", "https://localhost:3000", "127.0.0.1:8080", false},
		{"unparseable", "http://%zz", "localhost:8080", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := hub.checkOrigin(req); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"http://evil.example.com"}})
	if err == nil {
		t.Fatal("Expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("Expected no clients, got %d", hub.ClientCount())
	}
}
