package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/adzikra/pigeon-chat/internal/domain"
)

// SessionState is the lifecycle state of one connection's session.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticated
	StateClosed // terminal
)

var (
	errNotAuthenticated = errors.New("not logged in")
	errSessionClosed    = errors.New("session closed")
)

// Session is the per-connection controller. All inbound events for a
// connection arrive on a single goroutine, so handlers never overlap for
// one session; the mutex only guards state against supersede and
// disconnect racing in from other goroutines.
type Session struct {
	broker *Broker
	conn   Conn

	mu       sync.Mutex
	state    SessionState
	identity domain.Identity
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the identity the session logged in as.
func (s *Session) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// HandleEvent dispatches one inbound event. Malformed payloads and
// events invalid for the current state are answered with an error ack;
// shared state is never partially mutated on failure.
func (s *Session) HandleEvent(ev domain.Event) {
	var err error

	switch ev.Type {
	case domain.EventLogin:
		var p domain.LoginPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			err = s.Login(p)
		}
	case domain.EventSend:
		var p domain.SendPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			err = s.SendMessage(p)
		}
	case domain.EventTyping:
		var p domain.TypingPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			err = s.Typing(p)
		}
	case domain.EventRead:
		var p domain.ReadPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			err = s.MarkRead(p)
		}
	case domain.EventJoinRoom:
		var p domain.RoomPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			err = s.JoinRoom(p.Room)
		}
	case domain.EventLeaveRoom:
		var p domain.RoomPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			err = s.LeaveRoom(p.Room)
		}
	default:
		err = fmt.Errorf("unknown event type %q", ev.Type)
	}

	if err != nil {
		s.sendError(err)
	}
}

// Login binds the connection to an identity and makes it visible to
// presence. A second login on an authenticated session simply rebinds.
func (s *Session) Login(p domain.LoginPayload) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return errSessionClosed
	}
	if p.DisplayName == "" {
		s.mu.Unlock()
		return errors.New("username is required")
	}

	prev := s.identity
	wasAuthenticated := s.state == StateAuthenticated
	identity := domain.NewIdentity(p.UserID, p.DisplayName)
	s.identity = identity
	s.state = StateAuthenticated
	s.mu.Unlock()

	// Re-logging-in under a different user id sheds the old identity's
	// rooms, derived private ones included.
	if wasAuthenticated && prev.UserID != identity.UserID {
		s.broker.Rooms.RemoveConn(s.conn)
	}

	// Bind triggers the online-list broadcast via the presence listener.
	evicted := s.broker.Registry.Bind(s.conn, identity)
	if evicted != nil {
		if old := s.broker.sessionOf(evicted); old != nil {
			old.supersede()
		}
	}

	s.broker.Rooms.Join(domain.GlobalRoom, s.conn)
	s.broker.Presence.BroadcastSystemNotice(domain.GlobalRoom,
		fmt.Sprintf("%s joined the chat", identity.DisplayName))

	s.conn.Send(domain.NewEvent(domain.EventLoginSuccess, identity))
	return nil
}

// SendMessage appends a message to the log and fans it out to the
// resolved room. Private messages derive the room from the two user ids
// and pull both participants' connections into it.
func (s *Session) SendMessage(p domain.SendPayload) error {
	identity, err := s.requireAuth()
	if err != nil {
		return err
	}

	if p.Type == "" {
		p.Type = domain.MessageTypeText
	}
	switch p.Type {
	case domain.MessageTypeText:
		if p.Text == "" {
			return errors.New("text is required for text messages")
		}
	case domain.MessageTypeFile:
		if p.FileMeta == nil {
			return errors.New("fileMeta is required for file messages")
		}
	default:
		return fmt.Errorf("unknown message type %q", p.Type)
	}

	from := p.FromID
	if from == "" {
		from = identity.UserID
	}

	room := p.Room
	private := false
	switch {
	case room != "":
		if s.broker.Rooms.IsPrivateRoom(room) {
			return fmt.Errorf("room name %q is reserved", room)
		}
	case p.ToID != "":
		room = s.broker.Rooms.PrivateRoomName(from, p.ToID)
		private = true
	default:
		room = domain.GlobalRoom
	}

	// Join both participants before fan-out so the first private message
	// reaches the recipient too.
	if private {
		if c, ok := s.broker.Registry.ConnOf(from); ok {
			s.broker.Rooms.Join(room, c)
		}
		if c, ok := s.broker.Registry.ConnOf(p.ToID); ok {
			s.broker.Rooms.Join(room, c)
		}
	}

	msg := s.broker.Log.Append(domain.Message{
		Room:     room,
		From:     from,
		To:       p.ToID,
		Text:     p.Text,
		Type:     p.Type,
		FileMeta: p.FileMeta,
	})

	s.broker.Rooms.Broadcast(room, domain.NewEvent(domain.EventMessageNew, msg))
	s.conn.Send(domain.NewEvent(domain.EventMessageAck, domain.AckPayload{OK: true, ID: msg.ID}))
	return nil
}

// Typing relays a typing indicator to the other members of the room.
func (s *Session) Typing(p domain.TypingPayload) error {
	identity, err := s.requireAuth()
	if err != nil {
		return err
	}

	room := p.Room
	if room == "" {
		room = domain.GlobalRoom
	}
	userID := p.UserID
	if userID == "" {
		userID = identity.UserID
	}

	s.broker.Presence.BroadcastTyping(room, userID, p.Typing, s.conn)
	return nil
}

// MarkRead records a read receipt and, when it changed something,
// broadcasts the update to the message's room. Unknown message ids are a
// no-op, not an error.
func (s *Session) MarkRead(p domain.ReadPayload) error {
	identity, err := s.requireAuth()
	if err != nil {
		return err
	}
	if p.MessageID == "" {
		return errors.New("messageId is required")
	}

	userID := p.UserID
	if userID == "" {
		userID = identity.UserID
	}

	msg, changed, found := s.broker.Log.MarkRead(p.MessageID, userID)
	if !found || !changed {
		return nil
	}

	s.broker.Rooms.Broadcast(msg.Room, domain.NewEvent(domain.EventReadUpdate,
		domain.ReadUpdatePayload{MessageID: msg.ID, UserID: userID}))
	return nil
}

// JoinRoom subscribes the connection to an explicitly named room.
func (s *Session) JoinRoom(name string) error {
	if _, err := s.requireAuth(); err != nil {
		return err
	}
	if name == "" {
		return errors.New("room name is required")
	}
	if s.broker.Rooms.IsPrivateRoom(name) {
		return fmt.Errorf("room name %q is reserved", name)
	}

	s.broker.Rooms.Join(name, s.conn)
	s.conn.Send(domain.NewEvent(domain.EventJoinAck, domain.AckPayload{OK: true}))
	return nil
}

// LeaveRoom unsubscribes the connection from a room.
func (s *Session) LeaveRoom(name string) error {
	if _, err := s.requireAuth(); err != nil {
		return err
	}
	if name == "" {
		return errors.New("room name is required")
	}

	s.broker.Rooms.Leave(name, s.conn)
	s.conn.Send(domain.NewEvent(domain.EventLeaveAck, domain.AckPayload{OK: true}))
	return nil
}

// Disconnect tears the session down: unbind (which re-broadcasts the
// online list), drop all room memberships, and announce the leave when
// the session had logged in. Safe to call more than once.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	wasAuthenticated := s.state == StateAuthenticated
	identity := s.identity
	s.state = StateClosed
	s.mu.Unlock()

	s.broker.Registry.Unbind(s.conn)
	s.broker.Rooms.RemoveConn(s.conn)
	s.broker.Registry.RemoveConn(s.conn)
	s.broker.dropSession(s.conn)

	if wasAuthenticated {
		s.broker.Presence.BroadcastSystemNotice(domain.GlobalRoom,
			fmt.Sprintf("%s left", identity.DisplayName))
	}
}

// supersede demotes a session whose identity was claimed by a newer
// login on another connection. The connection stays open but must log in
// again to do anything.
func (s *Session) supersede() {
	s.mu.Lock()
	if s.state != StateAuthenticated {
		s.mu.Unlock()
		return
	}
	s.state = StateUnauthenticated
	s.identity = domain.Identity{}
	s.mu.Unlock()

	// Unauthenticated connections hold no room memberships; without this
	// the demoted connection would keep receiving its old identity's
	// private rooms.
	s.broker.Rooms.RemoveConn(s.conn)

	s.conn.Send(domain.NewEvent(domain.EventNotification,
		domain.NewNotice("your identity was claimed by another login")))
}

// requireAuth returns the session identity or the reason the operation
// must be rejected.
func (s *Session) requireAuth() (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateAuthenticated:
		return s.identity, nil
	case StateClosed:
		return domain.Identity{}, errSessionClosed
	default:
		return domain.Identity{}, errNotAuthenticated
	}
}

func (s *Session) sendError(err error) {
	s.conn.Send(domain.NewEvent(domain.EventError, domain.AckPayload{OK: false, Error: err.Error()}))
}
