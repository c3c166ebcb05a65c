package store

import (
	"database/sql"
	"time"
)

// UpsertConversation inserts or updates a cached conversation row.
func (db *DB) UpsertConversation(c *Conversation) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO conversations (cid, peer_id, peer_name, peer_email, unread_count, last_message_preview, last_message_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cid) DO UPDATE SET
			peer_id = excluded.peer_id,
			peer_name = excluded.peer_name,
			peer_email = excluded.peer_email,
			unread_count = excluded.unread_count,
			last_message_preview = excluded.last_message_preview,
			last_message_at = excluded.last_message_at,
			updated_at = excluded.updated_at`,
		c.CID, c.PeerID, c.PeerName, c.PeerEmail, c.UnreadCount, c.LastMessagePreview, c.LastMessageAt, now)
	return err
}

// ListConversations returns cached conversations, most recent activity first.
func (db *DB) ListConversations() ([]Conversation, error) {
	rows, err := db.Query(`
		SELECT cid, peer_id, peer_name, peer_email, unread_count, last_message_preview, last_message_at
		FROM conversations
		ORDER BY last_message_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.CID, &c.PeerID, &c.PeerName, &c.PeerEmail, &c.UnreadCount, &c.LastMessagePreview, &c.LastMessageAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetConversation returns a single cached conversation, or nil when absent.
func (db *DB) GetConversation(cid string) (*Conversation, error) {
	var c Conversation
	err := db.QueryRow(`
		SELECT cid, peer_id, peer_name, peer_email, unread_count, last_message_preview, last_message_at
		FROM conversations WHERE cid = ?`, cid).
		Scan(&c.CID, &c.PeerID, &c.PeerName, &c.PeerEmail, &c.UnreadCount, &c.LastMessagePreview, &c.LastMessageAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetUnreadCount stores the unread badge for one conversation.
func (db *DB) SetUnreadCount(cid string, count int) error {
	_, err := db.Exec(`
		UPDATE conversations SET unread_count = ?, updated_at = ? WHERE cid = ?`,
		count, time.Now().UnixMilli(), cid)
	return err
}

// ClearConversations wipes the cache, typically on logout.
func (db *DB) ClearConversations() error {
	_, err := db.Exec(`DELETE FROM conversations`)
	return err
}
