package thread

// Kind distinguishes the two message payloads the backend knows.
type Kind string

const (
	KindText  Kind = "TEXT"
	KindImage Kind = "IMAGE"
)

// Message is one entry in the reconciled thread.
//
// MID is the server-assigned identifier once confirmed. Before confirmation an
// optimistic entry carries a locally generated "temp-…" identifier in the same
// field; promotion swaps it for the real one in place.
//
// Timestamp is an RFC 3339 string. The backend formats consistently, so
// lexicographic comparison orders messages chronologically and is what the
// merge sorts by.
type Message struct {
	MID          string
	Conversation string
	Sender       string
	SenderName   string
	SenderEmail  string
	Body         string
	Image        string // opaque upload reference, resolved to a signed URL for display
	Kind         Kind
	Timestamp    string
	Status       Status
	IsRead       bool
	Optimistic   bool
	LocalPath    string // unconfirmed image preview source; never transmitted
}

// Confirmed reports whether the entry has a server-assigned identifier.
func (m Message) Confirmed() bool {
	return !m.Optimistic
}
