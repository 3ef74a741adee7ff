package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adzikra/pigeon-chat/internal/domain"
)

// MessageLog is the append-only in-memory message store. Messages within
// a room are totally ordered by append sequence; the log assigns ids and
// timestamps so callers cannot skew the order.
type MessageLog struct {
	mu     sync.RWMutex
	byRoom map[string][]*domain.Message
	byID   map[string]*domain.Message
}

// NewMessageLog creates an empty log.
func NewMessageLog() *MessageLog {
	return &MessageLog{
		byRoom: make(map[string][]*domain.Message),
		byID:   make(map[string]*domain.Message),
	}
}

// Append stores msg, assigning its id and timestamp, and returns the
// stored value. The caller's ID, CreatedAt, and ReadBy fields are ignored.
func (l *MessageLog) Append(msg domain.Message) domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	msg.ReadBy = []string{}

	stored := msg
	l.byRoom[msg.Room] = append(l.byRoom[msg.Room], &stored)
	l.byID[msg.ID] = &stored

	return copyMessage(&stored)
}

// Page returns one window of room's history plus the room's total message
// count. Page 1 is the most recent size messages; higher pages walk
// backward into older history. Items are returned oldest first. Pages
// past the start of history are empty with the correct total.
func (l *MessageLog) Page(room string, page, size int) ([]domain.Message, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	msgs := l.byRoom[room]
	total := len(msgs)

	end := total - (page-1)*size
	if end <= 0 {
		return []domain.Message{}, total
	}
	start := end - size
	if start < 0 {
		start = 0
	}

	items := make([]domain.Message, 0, end-start)
	for _, m := range msgs[start:end] {
		items = append(items, copyMessage(m))
	}
	return items, total
}

// MarkRead records that userID has read the message. Idempotent: marking
// twice leaves ReadBy unchanged and reports changed=false. Unknown ids
// report found=false rather than erroring. Fan-out of the update is the
// caller's job; the log never broadcasts.
func (l *MessageLog) MarkRead(messageID, userID string) (msg domain.Message, changed, found bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.byID[messageID]
	if !ok {
		return domain.Message{}, false, false
	}
	if !m.HasRead(userID) {
		m.ReadBy = append(m.ReadBy, userID)
		changed = true
	}
	return copyMessage(m), changed, true
}

// Get returns the message with the given id, if it exists.
func (l *MessageLog) Get(messageID string) (domain.Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.byID[messageID]
	if !ok {
		return domain.Message{}, false
	}
	return copyMessage(m), true
}

// Count returns the number of messages stored for room.
func (l *MessageLog) Count(room string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byRoom[room])
}

// copyMessage returns a value copy with its own ReadBy slice so callers
// never alias the stored record. ReadBy stays non-nil so it serializes
// as [] rather than null.
func copyMessage(m *domain.Message) domain.Message {
	out := *m
	out.ReadBy = make([]string, 0, len(m.ReadBy))
	out.ReadBy = append(out.ReadBy, m.ReadBy...)
	return out
}
