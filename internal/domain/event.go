package domain

import (
	"encoding/json"
	"time"
)

// EventType names a wire event. Inbound and outbound events share one
// envelope: {type, payload}.
type EventType string

const (
	// Inbound (client -> broker)
	EventLogin     EventType = "login"
	EventSend      EventType = "message:send"
	EventTyping    EventType = "typing"
	EventRead      EventType = "message:read"
	EventJoinRoom  EventType = "room:join"
	EventLeaveRoom EventType = "room:leave"

	// Outbound (broker -> client)
	EventLoginSuccess EventType = "login:success"
	EventOnlineList   EventType = "online:updated"
	EventMessageNew   EventType = "message:new"
	EventMessageAck   EventType = "message:ack"
	EventUserTyping   EventType = "user:typing"
	EventReadUpdate   EventType = "message:read:update"
	EventNotification EventType = "notification"
	EventJoinAck      EventType = "room:join:ack"
	EventLeaveAck     EventType = "room:leave:ack"
	EventError        EventType = "error"
)

// Event is the wire envelope for every websocket frame in both directions.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event envelope. Marshal errors are
// impossible for the payload types used here, so they are swallowed.
func NewEvent(t EventType, payload interface{}) Event {
	data, _ := json.Marshal(payload)
	return Event{Type: t, Payload: data}
}

// Encode renders the full envelope as JSON bytes ready for the transport.
func (e Event) Encode() []byte {
	data, _ := json.Marshal(e)
	return data
}

// LoginPayload is the inbound login request. UserID is optional.
type LoginPayload struct {
	UserID      string `json:"userId,omitempty"`
	DisplayName string `json:"username"`
}

// SendPayload is the inbound message:send request. Room resolution:
// explicit Room, else a private room derived from FromID/ToID, else global.
type SendPayload struct {
	Room     string      `json:"room,omitempty"`
	FromID   string      `json:"fromId"`
	ToID     string      `json:"toId,omitempty"`
	Text     string      `json:"text,omitempty"`
	Type     MessageType `json:"type"`
	FileMeta *FileMeta   `json:"fileMeta,omitempty"`
}

// TypingPayload is the inbound typing indicator, relayed verbatim to the
// other members of the room. Never persisted.
type TypingPayload struct {
	Room   string `json:"room,omitempty"`
	UserID string `json:"userId"`
	Typing bool   `json:"typing"`
}

// ReadPayload is the inbound read-receipt request.
type ReadPayload struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

// RoomPayload names a room for room:join / room:leave.
type RoomPayload struct {
	Room string `json:"room"`
}

// TypingUpdatePayload is the outbound typing relay.
type TypingUpdatePayload struct {
	UserID string `json:"userId"`
	Typing bool   `json:"typing"`
}

// ReadUpdatePayload is the outbound read-receipt broadcast.
type ReadUpdatePayload struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

// NoticePayload is a server-stamped free-text system notification.
type NoticePayload struct {
	Text string `json:"msg"`
	TS   int64  `json:"ts"`
}

// NewNotice stamps text with the current server time in milliseconds.
func NewNotice(text string) NoticePayload {
	return NoticePayload{Text: text, TS: time.Now().UnixMilli()}
}

// AckPayload acknowledges an inbound event. ID carries the assigned
// message id on message:ack; Error carries the rejection reason on error.
type AckPayload struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}
