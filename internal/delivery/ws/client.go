package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adzikra/pigeon-chat/internal/chat"
	"github.com/adzikra/pigeon-chat/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// Client adapts one websocket connection to the broker's Conn interface.
// Outbound events go through a buffered channel; a full buffer or a
// closed connection drops the event rather than blocking the broker.
type Client struct {
	conn    *websocket.Conn
	session *chat.Session
	send    chan []byte
	maxSize int64

	once sync.Once
	done chan struct{}
}

// NewClient wraps conn and attaches a fresh broker session to it.
func NewClient(broker *chat.Broker, conn *websocket.Conn, maxSize int64) *Client {
	c := &Client{
		conn:    conn,
		send:    make(chan []byte, 256),
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	c.session = broker.Connect(c)
	return c
}

// Session exposes the broker session bound to this connection.
func (c *Client) Session() *chat.Session {
	return c.session
}

// Send implements chat.Conn. Never blocks.
func (c *Client) Send(ev domain.Event) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- ev.Encode():
	default:
		// Buffer full
	}
}

// ReadPump pumps inbound frames into the session until the connection
// drops, then tears the session down.
func (c *Client) ReadPump() {
	defer func() {
		c.session.Disconnect()
		c.once.Do(func() { close(c.done) })
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			// Oversized frames close the connection; the size cap is the
			// capacity boundary for file payloads.
			break
		}

		var ev domain.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.Send(domain.NewEvent(domain.EventError,
				domain.AckPayload{OK: false, Error: "malformed event"}))
			continue
		}

		c.session.HandleEvent(ev)
	}
}

// WritePump pumps queued events to the websocket connection and keeps
// the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
