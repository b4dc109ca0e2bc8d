package stream

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
)

func serve(t *testing.T, hub *Hub, accept func(string) bool) string {
	t.Helper()
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), hub, accept)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "ws://" + ln.Addr().String()
}

func waitForClients(t *testing.T, hub *Hub, sessionID string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.clientCount(sessionID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d clients on %s", want, sessionID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamHandlersUpgradeRequired(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), NewHub(nil, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/stream/ws/session-1", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426 for non-websocket request, got %d", resp.StatusCode)
	}
}

func TestStreamHandlersWebsocketBroadcast(t *testing.T) {
	hub := NewHub(nil, nil)
	base := serve(t, hub, nil)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/stream/ws/session-1", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, "session-1", 1)

	hub.Broadcast(context.Background(), "session-1", []byte(`{"kind":"journey_started"}`))
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if string(msg) != `{"kind":"journey_started"}` {
		t.Fatalf("unexpected message %s", msg)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	conn.Close()
	waitForClients(t, hub, "session-1", 0)
}

func TestStreamHandlersRejectsUnknownSession(t *testing.T) {
	hub := NewHub(nil, nil)
	base := serve(t, hub, func(id string) bool { return id == "known" })

	_, resp, err := websocket.DefaultDialer.Dial(base+"/stream/ws/unknown", nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response")
	}
}
