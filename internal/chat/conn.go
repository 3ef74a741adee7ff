package chat

import "github.com/adzikra/pigeon-chat/internal/domain"

// Conn is one live transport session as the broker sees it. Send is
// fire-and-forget: it must never block, and delivery to a connection that
// has since gone away is silently dropped by the transport.
type Conn interface {
	Send(ev domain.Event)
}
