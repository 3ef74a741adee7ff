package chat

import (
	"encoding/json"
	"testing"

	"github.com/adzikra/pigeon-chat/internal/domain"
)

func TestPresence_OnlineListGoesToEveryConnection(t *testing.T) {
	b := newTestBroker()
	_, _ = login(t, b, "a1", "alice")

	// A connection that never logged in still sees presence updates.
	lurker := &mockConn{}
	b.Connect(lurker)

	_, _ = login(t, b, "b1", "bob")

	lists := lurker.eventsOfType(domain.EventOnlineList)
	if len(lists) == 0 {
		t.Fatal("Expected unauthenticated connection to receive online list")
	}

	var online []domain.Identity
	json.Unmarshal(lists[len(lists)-1].Payload, &online)
	if len(online) != 2 {
		t.Fatalf("Expected 2 online, got %d", len(online))
	}
	if online[0].UserID != "a1" || online[1].UserID != "b1" {
		t.Errorf("Expected login order a1,b1, got %+v", online)
	}
}

func TestPresence_SystemNoticeIsRoomScoped(t *testing.T) {
	b := newTestBroker()
	inRoom, outOfRoom := &mockConn{}, &mockConn{}
	b.Rooms.Join("ops", inRoom)

	b.Presence.BroadcastSystemNotice("ops", "deploy starting")

	notices := inRoom.eventsOfType(domain.EventNotification)
	if len(notices) != 1 {
		t.Fatalf("Expected 1 notice, got %d", len(notices))
	}
	var notice domain.NoticePayload
	json.Unmarshal(notices[0].Payload, &notice)
	if notice.Text != "deploy starting" || notice.TS == 0 {
		t.Errorf("Unexpected notice %+v", notice)
	}

	if len(outOfRoom.events) != 0 {
		t.Error("Expected non-member to receive nothing")
	}
}

func TestPresence_TypingRelaysToOthersOnly(t *testing.T) {
	b := newTestBroker()
	sender, other := &mockConn{}, &mockConn{}
	b.Rooms.Join("room", sender)
	b.Rooms.Join("room", other)

	b.Presence.BroadcastTyping("room", "u1", true, sender)

	if len(sender.eventsOfType(domain.EventUserTyping)) != 0 {
		t.Error("Expected sender excluded")
	}
	updates := other.eventsOfType(domain.EventUserTyping)
	if len(updates) != 1 {
		t.Fatalf("Expected 1 typing update, got %d", len(updates))
	}
	var upd domain.TypingUpdatePayload
	json.Unmarshal(updates[0].Payload, &upd)
	if upd.UserID != "u1" || !upd.Typing {
		t.Errorf("Unexpected typing update %+v", upd)
	}
}
