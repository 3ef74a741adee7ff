package chat

import (
	"sort"
	"strings"
	"sync"

	"github.com/adzikra/pigeon-chat/internal/domain"
)

// RoomDirectory maps room names to their current member connections.
// Rooms come into existence on first join and are swept as soon as the
// last member leaves. It holds no message data.
type RoomDirectory struct {
	mu     sync.RWMutex
	rooms  map[string]map[Conn]struct{}
	prefix string
}

// NewRoomDirectory creates a directory using prefix as the reserved
// namespace for derived private room names.
func NewRoomDirectory(prefix string) *RoomDirectory {
	if prefix == "" {
		prefix = domain.DefaultPrivateRoomPrefix
	}
	return &RoomDirectory{
		rooms:  make(map[string]map[Conn]struct{}),
		prefix: prefix,
	}
}

// Join adds c to room, creating the room if needed. Idempotent.
func (d *RoomDirectory) Join(room string, c Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[room]
	if !ok {
		members = make(map[Conn]struct{})
		d.rooms[room] = members
	}
	members[c] = struct{}{}
}

// Leave removes c from room. Idempotent; the room is swept once empty.
func (d *RoomDirectory) Leave(room string, c Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(d.rooms, room)
	}
}

// RemoveConn removes c from every room it is a member of.
func (d *RoomDirectory) RemoveConn(c Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for room, members := range d.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(d.rooms, room)
		}
	}
}

// MembersOf returns a snapshot of room's members. Unknown rooms are
// implicitly empty.
func (d *RoomDirectory) MembersOf(room string) []Conn {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := d.rooms[room]
	out := make([]Conn, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// PrivateRoomName derives the room name for a 1:1 chat between two user
// ids. Commutative: both participants compute the same name.
func (d *RoomDirectory) PrivateRoomName(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return d.prefix + ids[0] + ":" + ids[1]
}

// IsPrivateRoom reports whether name lives in the reserved derived-room
// namespace. Explicit joins of such names are rejected upstream to keep
// the namespaces disjoint.
func (d *RoomDirectory) IsPrivateRoom(name string) bool {
	return strings.HasPrefix(name, d.prefix)
}

// Broadcast delivers ev to every current member of room. Sending to an
// empty or unknown room is a no-op.
func (d *RoomDirectory) Broadcast(room string, ev domain.Event) {
	for _, c := range d.MembersOf(room) {
		c.Send(ev)
	}
}

// BroadcastExcept delivers ev to every member of room other than skip.
func (d *RoomDirectory) BroadcastExcept(room string, skip Conn, ev domain.Event) {
	for _, c := range d.MembersOf(room) {
		if c != skip {
			c.Send(ev)
		}
	}
}
