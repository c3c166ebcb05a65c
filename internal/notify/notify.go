// Package notify mirrors the server-side notification feed: a REST-seeded
// list kept current by a dedicated notification socket.
package notify

import "encoding/json"

// Notification is one entry in the feed.
type Notification struct {
	NID       string
	Text      string
	IsRead    bool
	CreatedAt string
}

type wireNotification struct {
	NID       json.Number `json:"nid"`
	Text      string      `json:"notification"`
	IsRead    bool        `json:"is_read"`
	CreatedAt string      `json:"created_at"`
}

// UnmarshalJSON normalizes the server's numeric nid into a string key.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var w wireNotification
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n.NID = w.NID.String()
	n.Text = w.Text
	n.IsRead = w.IsRead
	n.CreatedAt = w.CreatedAt
	return nil
}

// NotificationEvent announces a newly arrived notification.
type NotificationEvent struct {
	Notification Notification
}

// ReadEvent announces that a notification was marked read, possibly from
// another device.
type ReadEvent struct {
	NID string
}
