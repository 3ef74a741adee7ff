package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/adzikra/pigeon-chat/internal/chat"
	"github.com/adzikra/pigeon-chat/internal/config"
	"github.com/adzikra/pigeon-chat/internal/delivery/ws"
	"github.com/adzikra/pigeon-chat/internal/domain"
)

// Handler serves the websocket upgrade and the stateless history API.
type Handler struct {
	broker   *chat.Broker
	cfg      *config.Config
	upgrader websocket.Upgrader
}

// NewHandler wires the HTTP surface to the broker.
func NewHandler(broker *chat.Broker, cfg *config.Config) *Handler {
	h := &Handler{broker: broker, cfg: cfg}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return h.isOriginAllowed(r.Header.Get("Origin"))
		},
	}
	return h
}

// isOriginAllowed checks if the origin is in the allowed list.
// Empty origin is allowed (same-origin requests).
func (h *Handler) isOriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	return false
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// HandleMessages serves paginated room history. Stateless: callable
// without an active session, used for initial backfill and "load older"
// scrolling. Page 1 is the most recent page.
func (h *Handler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	room := r.URL.Query().Get("room")
	if room == "" {
		room = domain.GlobalRoom
	}

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			page = n
		}
	}

	limit := h.cfg.DefaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	items, total := h.broker.Log.Page(room, page, limit)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"messages": items,
		"total":    total,
	})
}

// HandleWebSocket upgrades the request and attaches the connection to
// the broker. The session stays unauthenticated until a login event.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.broker, conn, h.cfg.MaxMessageSize)

	go client.WritePump()
	go client.ReadPump()
}
