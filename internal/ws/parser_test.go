package ws

import (
	"testing"

	"github.com/bishaldk/samvad/internal/bus"
	"github.com/bishaldk/samvad/internal/presence"
	"github.com/bishaldk/samvad/internal/thread"
)

func TestNormalizeChatMessage(t *testing.T) {
	raw := []byte(`{"type":"chat_message","message_id":42,"message":"hello",
		"sender":7,"sender_name":"Asha","sender_email":"asha@example.com",
		"timestamp":"2025-03-10T10:00:00Z","status":"sent","is_read":false}`)

	evt, ok, err := normalize("conv-1", raw)
	if err != nil || !ok {
		t.Fatalf("normalize: ok=%v err=%v", ok, err)
	}
	if evt.Kind != bus.KindChatMessage {
		t.Fatalf("kind = %s", evt.Kind)
	}
	me, isMsg := evt.Payload.(thread.MessageEvent)
	if !isMsg {
		t.Fatalf("payload type %T", evt.Payload)
	}
	if me.MID != "42" || me.Sender != "7" || me.Body != "hello" {
		t.Fatalf("event = %+v", me)
	}
	if me.Kind != thread.KindText {
		t.Fatalf("kind = %s, want %s", me.Kind, thread.KindText)
	}
	// Timestamps shift into the display zone, UTC+05:45.
	if me.Timestamp != "2025-03-10T15:45:00" {
		t.Fatalf("timestamp = %q", me.Timestamp)
	}
}

func TestNormalizeImageMessage(t *testing.T) {
	raw := []byte(`{"type":"image_message","message_id":9,"image":"pub-1",
		"message":"caption","sender":7,"timestamp":"2025-03-10T10:00:00Z"}`)

	evt, ok, err := normalize("conv-1", raw)
	if err != nil || !ok {
		t.Fatalf("normalize: ok=%v err=%v", ok, err)
	}
	me := evt.Payload.(thread.MessageEvent)
	if me.Kind != thread.KindImage || me.Image != "pub-1" {
		t.Fatalf("event = %+v", me)
	}
}

func TestNormalizeControlFrames(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		kind string
	}{
		{"read", `{"type":"read"}`, bus.KindChatRead},
		{"status_upgrade", `{"type":"status_upgrade","recipient_id":3,"new_status":"delivered"}`, bus.KindChatStatusUpgrade},
		{"user_status", `{"type":"user_status","user_id":3,"is_staff":true,"status":"online"}`, bus.KindChatPresence},
		{"typing", `{"type":"typing","user_id":3,"sender_name":"Asha","is_typing":true}`, bus.KindChatTyping},
		{"online_users", `{"type":"online_users","users":[{"id":3,"is_staff":true}]}`, bus.KindChatOnlineList},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			evt, ok, err := normalize("conv-1", []byte(tc.raw))
			if err != nil || !ok {
				t.Fatalf("normalize: ok=%v err=%v", ok, err)
			}
			if evt.Kind != tc.kind {
				t.Fatalf("kind = %s, want %s", evt.Kind, tc.kind)
			}
			if evt.Conversation != "conv-1" {
				t.Fatalf("conversation = %q", evt.Conversation)
			}
		})
	}
}

func TestNormalizeStatusUpgradeFields(t *testing.T) {
	raw := []byte(`{"type":"status_upgrade","recipient_id":3,"new_status":"delivered"}`)
	evt, _, err := normalize("conv-1", raw)
	if err != nil {
		t.Fatal(err)
	}
	su := evt.Payload.(thread.StatusUpgradeEvent)
	if su.Recipient != "3" || su.NewStatus != thread.StatusDelivered {
		t.Fatalf("event = %+v", su)
	}
}

func TestNormalizePresenceOffline(t *testing.T) {
	raw := []byte(`{"type":"user_status","user_id":3,"is_staff":false,"status":"offline"}`)
	evt, _, err := normalize("conv-1", raw)
	if err != nil {
		t.Fatal(err)
	}
	pe := evt.Payload.(thread.PresenceEvent)
	if pe.Online {
		t.Fatal("offline status parsed as online")
	}
}

func TestNormalizeOnlineList(t *testing.T) {
	raw := []byte(`{"type":"online_users","users":[{"id":3,"is_staff":true},{"id":8,"is_staff":false}]}`)
	evt, _, err := normalize("conv-1", raw)
	if err != nil {
		t.Fatal(err)
	}
	ol := evt.Payload.(presence.OnlineListEvent)
	if len(ol.Users) != 2 || ol.Users[0].ID != "3" || !ol.Users[0].IsStaff {
		t.Fatalf("event = %+v", ol)
	}
}

func TestNormalizeHeartbeatAckIsSilent(t *testing.T) {
	_, ok, err := normalize("conv-1", []byte(`{"type":"heartbeat_ack"}`))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("heartbeat_ack should not produce an event")
	}
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	cases := []string{
		`not json`,
		`{"type":"mystery"}`,
		`{"type":"chat_message","message":"no id"}`,
	}
	for _, raw := range cases {
		if _, _, err := normalize("conv-1", []byte(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
