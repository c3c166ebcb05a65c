package store

// Credentials is the persisted login state for one named session.
type Credentials struct {
	Session      string
	AccessToken  string
	RefreshToken string
	UserID       string
	Email        string
	FirstName    string
	LastName     string
	IsStaff      bool
}

// Conversation is a cached conversation-list row, refreshed from the server
// and good enough to render the sidebar before the first fetch completes.
type Conversation struct {
	CID                string
	PeerID             string
	PeerName           string
	PeerEmail          string
	UnreadCount        int
	LastMessagePreview string
	LastMessageAt      string
}
