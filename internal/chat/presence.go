package chat

import "github.com/adzikra/pigeon-chat/internal/domain"

// Presence computes the online-user view and fans out room-scoped system
// notifications. The online list is global: it goes to every live
// connection, not just room members.
type Presence struct {
	registry *IdentityRegistry
	rooms    *RoomDirectory
}

// NewPresence wires presence fan-out to the registry and room directory.
func NewPresence(registry *IdentityRegistry, rooms *RoomDirectory) *Presence {
	return &Presence{registry: registry, rooms: rooms}
}

// PresenceChanged implements PresenceListener; the registry calls it on
// every bind and unbind.
func (p *Presence) PresenceChanged() {
	p.BroadcastOnlineList()
}

// BroadcastOnlineList sends the current online list, in login order, to
// every live connection.
func (p *Presence) BroadcastOnlineList() {
	ev := domain.NewEvent(domain.EventOnlineList, p.registry.ListOnline())
	for _, c := range p.registry.AllConns() {
		c.Send(ev)
	}
}

// BroadcastSystemNotice stamps text with the server time and broadcasts
// it to room.
func (p *Presence) BroadcastSystemNotice(room, text string) {
	p.rooms.Broadcast(room, domain.NewEvent(domain.EventNotification, domain.NewNotice(text)))
}

// BroadcastTyping relays a typing indicator to every member of room
// except the sender. Typing state is never persisted or acknowledged.
func (p *Presence) BroadcastTyping(room, userID string, typing bool, sender Conn) {
	ev := domain.NewEvent(domain.EventUserTyping, domain.TypingUpdatePayload{
		UserID: userID,
		Typing: typing,
	})
	p.rooms.BroadcastExcept(room, sender, ev)
}
