package thread

// Normalized chat events, produced by the connection manager's parser and
// consumed by the Store's reducers. The store never sees raw socket frames.

// MessageEvent is a confirmed chat_message or image_message: the server
// assigned MID and an authoritative timestamp (already shifted to the display
// offset by the parser).
type MessageEvent struct {
	Conversation string
	MID          string
	Kind         Kind
	Body         string
	Image        string
	Sender       string
	SenderName   string
	SenderEmail  string
	Timestamp    string
	Status       Status // "" means infer from IsRead
	IsRead       bool
}

// ReadEvent marks all of the current user's outbound messages read.
type ReadEvent struct {
	Conversation string
}

// StatusUpgradeEvent is a forward-only bump, in practice sent → delivered.
type StatusUpgradeEvent struct {
	Conversation string
	Recipient    string
	NewStatus    Status
}

// PresenceEvent reports a participant going online or offline. A counterpart
// coming online opportunistically upgrades the current user's sent messages
// to delivered.
type PresenceEvent struct {
	Conversation string
	UserID       string
	IsStaff      bool
	Online       bool
}

// TypingEvent toggles a participant in the typing-presence set.
type TypingEvent struct {
	Conversation string
	UserID       string
	SenderName   string
	IsTyping     bool
}
