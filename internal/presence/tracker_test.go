package presence

import (
	"testing"
	"time"

	"github.com/bishaldk/samvad/internal/bus"
	"github.com/bishaldk/samvad/internal/thread"
)

func testTracker() *Tracker {
	tr := NewTracker(bus.New(), nil)
	tr.SetViewer(false)
	tr.SetConversation("conv-a", "")
	return tr
}

func TestTypingInsertAndRemove(t *testing.T) {
	tr := testTracker()

	tr.ApplyTyping(thread.TypingEvent{Conversation: "conv-a", UserID: "9", SenderName: "Support", IsTyping: true})
	if names := tr.TypingNames(); len(names) != 1 || names[0] != "Support" {
		t.Fatalf("TypingNames = %v, want [Support]", names)
	}

	tr.ApplyTyping(thread.TypingEvent{Conversation: "conv-a", UserID: "9", IsTyping: false})
	if names := tr.TypingNames(); len(names) != 0 {
		t.Fatalf("TypingNames = %v after stop, want empty", names)
	}
}

func TestTypingExpiresWithoutStopFrame(t *testing.T) {
	tr := testTracker()

	tr.ApplyTyping(thread.TypingEvent{Conversation: "conv-a", UserID: "9", SenderName: "Support", IsTyping: true})
	tr.mu.Lock()
	e := tr.typing["9"]
	e.seen = time.Now().Add(-typingTTL - time.Second)
	tr.typing["9"] = e
	tr.mu.Unlock()

	if names := tr.TypingNames(); len(names) != 0 {
		t.Fatalf("TypingNames = %v, want expired entry pruned", names)
	}
}

func TestStaleConversationTypingDropped(t *testing.T) {
	tr := testTracker()
	tr.SetConversation("conv-b", "")

	tr.ApplyTyping(thread.TypingEvent{Conversation: "conv-a", UserID: "9", SenderName: "Support", IsTyping: true})
	if names := tr.TypingNames(); len(names) != 0 {
		t.Fatalf("stale typing event applied: %v", names)
	}
}

func TestOnlineFromUserStatus(t *testing.T) {
	tr := testTracker() // non-staff viewer: any staff is the counterpart

	tr.ApplyPresence(thread.PresenceEvent{Conversation: "conv-a", UserID: "9", IsStaff: true, Online: true})
	if !tr.Online() {
		t.Error("counterpart staff online not tracked")
	}

	// Another ordinary user's status is not the counterpart.
	tr.ApplyPresence(thread.PresenceEvent{Conversation: "conv-a", UserID: "55", IsStaff: false, Online: false})
	if !tr.Online() {
		t.Error("non-counterpart status overwrote online flag")
	}

	tr.ApplyPresence(thread.PresenceEvent{Conversation: "conv-a", UserID: "9", IsStaff: true, Online: false})
	if tr.Online() {
		t.Error("counterpart offline not tracked")
	}
}

func TestOnlineListStaffViewer(t *testing.T) {
	tr := NewTracker(bus.New(), nil)
	tr.SetViewer(true)
	tr.SetConversation("conv-a", "31")

	tr.ApplyOnlineList(OnlineListEvent{
		Conversation: "conv-a",
		Users:        []OnlineUser{{ID: "12"}, {ID: "31"}},
	})
	if !tr.Online() {
		t.Error("selected user in roster not reported online")
	}

	tr.ApplyOnlineList(OnlineListEvent{
		Conversation: "conv-a",
		Users:        []OnlineUser{{ID: "12"}},
	})
	if tr.Online() {
		t.Error("absent user still reported online")
	}
}

func TestConversationSwitchClearsPresence(t *testing.T) {
	tr := testTracker()
	tr.ApplyTyping(thread.TypingEvent{Conversation: "conv-a", UserID: "9", SenderName: "Support", IsTyping: true})
	tr.ApplyPresence(thread.PresenceEvent{Conversation: "conv-a", UserID: "9", IsStaff: true, Online: true})

	tr.SetConversation("conv-b", "")
	if tr.Online() {
		t.Error("online flag survived conversation switch")
	}
	if names := tr.TypingNames(); len(names) != 0 {
		t.Errorf("typing set survived conversation switch: %v", names)
	}
}

func TestPublishesPresenceChanged(t *testing.T) {
	b := bus.New()
	tr := NewTracker(b, nil)
	tr.SetViewer(false)

	ch, unsub := b.Subscribe("presence.", 10)
	defer unsub()

	tr.SetConversation("conv-a", "")
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no event from SetConversation")
	}

	tr.ApplyTyping(thread.TypingEvent{Conversation: "conv-a", UserID: "9", SenderName: "Support", IsTyping: true})
	select {
	case evt := <-ch:
		if evt.Kind != bus.KindPresenceChanged {
			t.Errorf("kind = %q, want presence.changed", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for presence.changed")
	}
}
