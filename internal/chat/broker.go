package chat

import (
	"sync"

	"github.com/adzikra/pigeon-chat/internal/config"
)

// Broker owns one process-wide set of chat components and the sessions
// attached to them. Construct one per process and pass it to the
// transport layer.
type Broker struct {
	cfg      *config.Config
	Registry *IdentityRegistry
	Rooms    *RoomDirectory
	Log      *MessageLog
	Presence *Presence

	mu       sync.Mutex
	sessions map[Conn]*Session
}

// NewBroker wires the registry, room directory, message log, and
// presence fan-out together.
func NewBroker(cfg *config.Config) *Broker {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	registry := NewIdentityRegistry()
	rooms := NewRoomDirectory(cfg.PrivateRoomPrefix)
	presence := NewPresence(registry, rooms)
	registry.SetListener(presence)

	return &Broker{
		cfg:      cfg,
		Registry: registry,
		Rooms:    rooms,
		Log:      NewMessageLog(),
		Presence: presence,
		sessions: make(map[Conn]*Session),
	}
}

// Connect registers a new live connection and returns its session. The
// session starts unauthenticated.
func (b *Broker) Connect(c Conn) *Session {
	s := &Session{broker: b, conn: c}

	b.mu.Lock()
	b.sessions[c] = s
	b.mu.Unlock()

	b.Registry.AddConn(c)
	return s
}

// sessionOf returns the session attached to c, if any.
func (b *Broker) sessionOf(c Conn) *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[c]
}

// dropSession forgets the session attached to c.
func (b *Broker) dropSession(c Conn) {
	b.mu.Lock()
	delete(b.sessions, c)
	b.mu.Unlock()
}
