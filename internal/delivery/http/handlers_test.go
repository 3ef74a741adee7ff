package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adzikra/pigeon-chat/internal/chat"
	"github.com/adzikra/pigeon-chat/internal/config"
	"github.com/adzikra/pigeon-chat/internal/domain"
)

func setupTestHandler() (*Handler, *chat.Broker) {
	cfg := config.DefaultConfig()
	broker := chat.NewBroker(cfg)
	return NewHandler(broker, cfg), broker
}

func TestIsOriginAllowed(t *testing.T) {
	h, _ := setupTestHandler()

	tests := []struct {
		origin   string
		expected bool
	}{
		{"http://localhost:4000", true},
		{"http://localhost:3000", true},
		{"", true}, // Empty origin allowed (same-origin)
		{"http://evil.com", false},
	}

	for _, tc := range tests {
		result := h.isOriginAllowed(tc.origin)
		if result != tc.expected {
			t.Errorf("isOriginAllowed(%s) = %v, expected %v", tc.origin, result, tc.expected)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	h, _ := setupTestHandler()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, req)

	var res map[string]bool
	json.NewDecoder(w.Body).Decode(&res)
	if !res["ok"] {
		t.Error("Expected ok:true from health endpoint")
	}
}

func TestHandleMessages_Pagination(t *testing.T) {
	h, broker := setupTestHandler()

	for i := 0; i < 45; i++ {
		broker.Log.Append(domain.Message{
			Room: domain.GlobalRoom,
			From: "u1",
			Text: "x",
			Type: domain.MessageTypeText,
		})
	}

	req := httptest.NewRequest("GET", "/messages?room=global&page=1&limit=20", nil)
	w := httptest.NewRecorder()
	h.HandleMessages(w, req)

	var res struct {
		Messages []domain.Message `json:"messages"`
		Total    int              `json:"total"`
	}
	json.NewDecoder(w.Body).Decode(&res)

	if res.Total != 45 {
		t.Errorf("Expected total 45, got %d", res.Total)
	}
	if len(res.Messages) != 20 {
		t.Errorf("Expected 20 messages on page 1, got %d", len(res.Messages))
	}
}

func TestHandleMessages_Defaults(t *testing.T) {
	h, broker := setupTestHandler()

	broker.Log.Append(domain.Message{Room: domain.GlobalRoom, From: "u1", Text: "x", Type: domain.MessageTypeText})

	// No query params: global room, page 1, configured page size.
	req := httptest.NewRequest("GET", "/messages", nil)
	w := httptest.NewRecorder()
	h.HandleMessages(w, req)

	var res struct {
		Messages []domain.Message `json:"messages"`
		Total    int              `json:"total"`
	}
	json.NewDecoder(w.Body).Decode(&res)
	if res.Total != 1 || len(res.Messages) != 1 {
		t.Errorf("Expected 1 message, got total=%d len=%d", res.Total, len(res.Messages))
	}

	// Unknown room: empty list, zero total, still 200.
	req = httptest.NewRequest("GET", "/messages?room=nowhere", nil)
	w = httptest.NewRecorder()
	h.HandleMessages(w, req)
	json.NewDecoder(w.Body).Decode(&res)
	if res.Total != 0 || len(res.Messages) != 0 {
		t.Errorf("Expected empty history, got total=%d len=%d", res.Total, len(res.Messages))
	}
}

func TestHandleMessages_MethodNotAllowed(t *testing.T) {
	h, _ := setupTestHandler()

	req := httptest.NewRequest("POST", "/messages", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	h.HandleMessages(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

// dialTestServer upgrades a websocket against the handler under test.
func dialTestServer(t *testing.T, h *Handler) (*websocket.Conn, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("Dial failed: %v", err)
	}
	return conn, srv
}

// readEvent reads the next event frame with a deadline.
func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	var ev domain.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Bad event frame %q: %v", data, err)
	}
	return ev
}

// waitFor reads frames until one of the wanted type arrives.
func waitFor(t *testing.T, conn *websocket.Conn, want domain.EventType) domain.Event {
	t.Helper()

	for i := 0; i < 10; i++ {
		ev := readEvent(t, conn)
		if ev.Type == want {
			return ev
		}
	}
	t.Fatalf("Never received %q", want)
	return domain.Event{}
}

func TestWebSocket_LoginAndSend(t *testing.T) {
	h, broker := setupTestHandler()
	conn, srv := dialTestServer(t, h)
	defer srv.Close()
	defer conn.Close()

	loginEv := domain.NewEvent(domain.EventLogin, domain.LoginPayload{DisplayName: "alice"})
	if err := conn.WriteMessage(websocket.TextMessage, loginEv.Encode()); err != nil {
		t.Fatalf("Write login failed: %v", err)
	}

	ack := waitFor(t, conn, domain.EventLoginSuccess)
	var id domain.Identity
	json.Unmarshal(ack.Payload, &id)
	if id.UserID == "" || id.DisplayName != "alice" {
		t.Fatalf("Bad login ack %+v", id)
	}

	sendEv := domain.NewEvent(domain.EventSend, domain.SendPayload{
		Text: "hello",
		Type: domain.MessageTypeText,
	})
	if err := conn.WriteMessage(websocket.TextMessage, sendEv.Encode()); err != nil {
		t.Fatalf("Write send failed: %v", err)
	}

	newEv := waitFor(t, conn, domain.EventMessageNew)
	var msg domain.Message
	json.Unmarshal(newEv.Payload, &msg)
	if msg.Text != "hello" || msg.Room != domain.GlobalRoom {
		t.Errorf("Unexpected broadcast message %+v", msg)
	}

	if broker.Log.Count(domain.GlobalRoom) != 1 {
		t.Errorf("Expected 1 logged message, got %d", broker.Log.Count(domain.GlobalRoom))
	}
}

func TestWebSocket_OversizedFrameRejected(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxMessageSize = 64
	broker := chat.NewBroker(cfg)
	h := NewHandler(broker, cfg)

	conn, srv := dialTestServer(t, h)
	defer srv.Close()
	defer conn.Close()

	big := domain.NewEvent(domain.EventSend, domain.SendPayload{
		Text: strings.Repeat("a", 512),
		Type: domain.MessageTypeText,
	})
	if err := conn.WriteMessage(websocket.TextMessage, big.Encode()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// The boundary answers with a 1009 close; nothing reaches the core.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseMessageTooBig) {
			t.Fatalf("Expected message-too-big close, got %v", err)
		}
		break
	}

	if n := broker.Log.Count(domain.GlobalRoom); n != 0 {
		t.Errorf("Expected no message appended, got %d", n)
	}
}

func TestWebSocket_DisconnectUpdatesPresence(t *testing.T) {
	h, broker := setupTestHandler()
	conn, srv := dialTestServer(t, h)
	defer srv.Close()

	loginEv := domain.NewEvent(domain.EventLogin, domain.LoginPayload{UserID: "gone", DisplayName: "alice"})
	conn.WriteMessage(websocket.TextMessage, loginEv.Encode())
	waitFor(t, conn, domain.EventLoginSuccess)

	conn.Close()

	// Disconnect is asynchronous; poll until the registry catches up.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(broker.Registry.ListOnline()) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Expected online list to empty after disconnect")
}
