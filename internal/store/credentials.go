package store

import (
	"database/sql"
	"time"
)

// SaveCredentials inserts or replaces the login state for a session.
func (db *DB) SaveCredentials(c *Credentials) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO credentials (session, access_token, refresh_token, user_id, email, first_name, last_name, is_staff, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			user_id = excluded.user_id,
			email = excluded.email,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			is_staff = excluded.is_staff,
			updated_at = excluded.updated_at`,
		c.Session, c.AccessToken, c.RefreshToken, c.UserID, c.Email, c.FirstName, c.LastName, c.IsStaff, now)
	return err
}

// UpdateAccessToken replaces only the access token after a refresh.
func (db *DB) UpdateAccessToken(session, access string) error {
	_, err := db.Exec(`
		UPDATE credentials SET access_token = ?, updated_at = ? WHERE session = ?`,
		access, time.Now().UnixMilli(), session)
	return err
}

// LoadCredentials returns the login state for a session, or nil when none is
// stored.
func (db *DB) LoadCredentials(session string) (*Credentials, error) {
	var c Credentials
	err := db.QueryRow(`
		SELECT session, access_token, refresh_token, user_id, email, first_name, last_name, is_staff
		FROM credentials WHERE session = ?`, session).
		Scan(&c.Session, &c.AccessToken, &c.RefreshToken, &c.UserID, &c.Email, &c.FirstName, &c.LastName, &c.IsStaff)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCredentials removes the login state on logout.
func (db *DB) DeleteCredentials(session string) error {
	_, err := db.Exec(`DELETE FROM credentials WHERE session = ?`, session)
	return err
}
