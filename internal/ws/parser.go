package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bishaldk/samvad/internal/bus"
	"github.com/bishaldk/samvad/internal/presence"
	"github.com/bishaldk/samvad/internal/thread"
	"github.com/bishaldk/samvad/internal/timeline"
)

// normalize decodes a raw chat socket frame into a bus event. The second
// return is false for frames that carry no application state (heartbeat
// acknowledgements). An error means the frame was malformed and must be
// dropped without affecting any state.
func normalize(conversation string, data []byte) (bus.Event, bool, error) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return bus.Event{}, false, fmt.Errorf("decoding frame: %w", err)
	}

	now := time.Now()
	switch f.Type {
	case frameChatMessage, frameImageMessage:
		kind := thread.KindText
		if f.Type == frameImageMessage {
			kind = thread.KindImage
		}
		if f.MessageID.String() == "" {
			return bus.Event{}, false, fmt.Errorf("%s frame without message_id", f.Type)
		}
		return bus.Event{
			Kind:         bus.KindChatMessage,
			Conversation: conversation,
			Timestamp:    now,
			Payload: thread.MessageEvent{
				Conversation: conversation,
				MID:          f.MessageID.String(),
				Kind:         kind,
				Body:         f.Message,
				Image:        f.Image,
				Sender:       f.Sender.String(),
				SenderName:   f.SenderName,
				SenderEmail:  f.SenderEmail,
				Timestamp:    timeline.ToDisplay(f.Timestamp),
				Status:       thread.Status(f.Status),
				IsRead:       f.IsRead,
			},
		}, true, nil

	case frameRead:
		return bus.Event{
			Kind:         bus.KindChatRead,
			Conversation: conversation,
			Timestamp:    now,
			Payload:      thread.ReadEvent{Conversation: conversation},
		}, true, nil

	case frameStatusUp:
		return bus.Event{
			Kind:         bus.KindChatStatusUpgrade,
			Conversation: conversation,
			Timestamp:    now,
			Payload: thread.StatusUpgradeEvent{
				Conversation: conversation,
				Recipient:    f.RecipientID.String(),
				NewStatus:    thread.Status(f.NewStatus),
			},
		}, true, nil

	case frameUserStatus:
		return bus.Event{
			Kind:         bus.KindChatPresence,
			Conversation: conversation,
			Timestamp:    now,
			Payload: thread.PresenceEvent{
				Conversation: conversation,
				UserID:       f.UserID.String(),
				IsStaff:      f.IsStaff,
				Online:       f.Status == "online",
			},
		}, true, nil

	case frameOnlineUsers:
		users := make([]presence.OnlineUser, 0, len(f.Users))
		for _, u := range f.Users {
			users = append(users, presence.OnlineUser{ID: u.ID.String(), IsStaff: u.IsStaff})
		}
		return bus.Event{
			Kind:         bus.KindChatOnlineList,
			Conversation: conversation,
			Timestamp:    now,
			Payload:      presence.OnlineListEvent{Conversation: conversation, Users: users},
		}, true, nil

	case frameTyping:
		return bus.Event{
			Kind:         bus.KindChatTyping,
			Conversation: conversation,
			Timestamp:    now,
			Payload: thread.TypingEvent{
				Conversation: conversation,
				UserID:       f.UserID.String(),
				SenderName:   f.SenderName,
				IsTyping:     f.IsTyping,
			},
		}, true, nil

	case frameHeartbeatAck:
		return bus.Event{}, false, nil

	default:
		return bus.Event{}, false, fmt.Errorf("unknown frame type %q", f.Type)
	}
}
