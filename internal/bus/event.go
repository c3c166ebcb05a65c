package bus

import "time"

// Event represents a domain event published on the bus.
//
// Conversation carries the conversation id the event belongs to, or "" for
// events that are not conversation-scoped (connection state, notifications).
// Consumers that track an active conversation must compare it before applying
// the payload: a stale event tagged with a previous conversation is dropped,
// never processed.
type Event struct {
	Kind         string
	Conversation string
	Timestamp    time.Time
	Payload      any
}

// Event kind namespaces. Subscribers filter by prefix.
const (
	// conn.* — connection manager lifecycle.
	KindConnState = "conn.state"

	// chat.* — normalized chat-channel frames.
	KindChatMessage       = "chat.message"
	KindChatRead          = "chat.read"
	KindChatStatusUpgrade = "chat.status_upgrade"
	KindChatTyping        = "chat.typing"
	KindChatPresence      = "chat.presence"
	KindChatOnlineList    = "chat.online_users"

	// presence.* — derived typing/online state changes.
	KindPresenceChanged = "presence.changed"

	// notify.* — notification-channel frames.
	KindNotification     = "notify.notification"
	KindNotificationRead = "notify.read"
	KindFeedUpdated      = "notify.updated"

	// thread.* — reconciliation store changes.
	KindThreadUpdated = "thread.updated"
)
