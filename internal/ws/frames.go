package ws

import "encoding/json"

// Outbound frame types.
const (
	frameChatMessage = "chat_message"
	frameImage       = "image"
	frameTyping      = "typing"
	frameRead        = "read"
	frameHeartbeat   = "heartbeat"
	frameReadNotif   = "read_notification"
)

// Inbound frame types.
const (
	frameImageMessage = "image_message"
	frameStatusUp     = "status_upgrade"
	frameUserStatus   = "user_status"
	frameOnlineUsers  = "online_users"
	frameHeartbeatAck = "heartbeat_ack"
	frameNotification = "notification"
)

type chatMessageFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageFrame struct {
	Type  string `json:"type"`
	Image string `json:"image"`
	Text  string `json:"text"`
}

type typingFrame struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
}

type readFrame struct {
	Type string `json:"type"`
}

type heartbeatFrame struct {
	Type string `json:"type"`
}

type readNotificationFrame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// inboundFrame is a superset of every frame shape the server sends on a chat
// socket. The Type discriminator decides which fields are meaningful.
type inboundFrame struct {
	Type        string      `json:"type"`
	MessageID   json.Number `json:"message_id"`
	Message     string      `json:"message"`
	Image       string      `json:"image"`
	Sender      json.Number `json:"sender"`
	SenderName  string      `json:"sender_name"`
	SenderEmail string      `json:"sender_email"`
	Timestamp   string      `json:"timestamp"`
	Status      string      `json:"status"`
	IsRead      bool        `json:"is_read"`

	RecipientID json.Number `json:"recipient_id"`
	NewStatus   string      `json:"new_status"`

	UserID   json.Number   `json:"user_id"`
	IsStaff  bool          `json:"is_staff"`
	IsTyping bool          `json:"is_typing"`
	Users    []onlineEntry `json:"users"`
}

type onlineEntry struct {
	ID      json.Number `json:"id"`
	IsStaff bool        `json:"is_staff"`
}
