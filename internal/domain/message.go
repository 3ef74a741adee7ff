package domain

import "time"

// MessageType distinguishes the two kinds of stored messages.
type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeFile MessageType = "file"
)

// FileMeta describes a file attachment. Payload is base64-encoded; the
// broker treats it as opaque bytes and only enforces the transport size cap.
type FileMeta struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size"`
	MimeType  string `json:"mimeType"`
	Payload   string `json:"payload"`
}

// Message is one entry in a room's history. Once appended it is immutable
// except for ReadBy, which only ever grows.
type Message struct {
	ID        string      `json:"id"`
	Room      string      `json:"room"`
	From      string      `json:"from"`
	To        string      `json:"to,omitempty"`
	Text      string      `json:"text,omitempty"`
	Type      MessageType `json:"type"`
	FileMeta  *FileMeta   `json:"fileMeta,omitempty"`
	CreatedAt time.Time   `json:"ts"`
	ReadBy    []string    `json:"readBy"`
}

// HasRead reports whether userID already appears in ReadBy.
func (m *Message) HasRead(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
