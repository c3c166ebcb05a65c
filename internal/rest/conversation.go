package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// ConversationSummary is one row of the staff-side conversation list.
type ConversationSummary struct {
	CID         string
	PeerID      string
	PeerName    string
	PeerEmail   string
	UnreadCount int
	IsOnline    bool
}

// wireConversation carries the conversation pk as cid (a UUID string) and
// the counterpart's pk as user. The user_details block is only attached on
// the staff list.
type wireConversation struct {
	CID         string      `json:"cid"`
	User        json.Number `json:"user"`
	UserDetails struct {
		ID        json.Number `json:"id"`
		FirstName string      `json:"first_name"`
		LastName  string      `json:"last_name"`
		Email     string      `json:"email"`
	} `json:"user_details"`
	UnreadCount int  `json:"unread_count"`
	IsOnline    bool `json:"is_online"`
}

func (w wireConversation) toSummary() ConversationSummary {
	name := w.UserDetails.FirstName
	if w.UserDetails.LastName != "" {
		if name != "" {
			name += " "
		}
		name += w.UserDetails.LastName
	}
	peer := w.UserDetails.ID.String()
	if peer == "" {
		peer = w.User.String()
	}
	return ConversationSummary{
		CID:         w.CID,
		PeerID:      peer,
		PeerName:    name,
		PeerEmail:   w.UserDetails.Email,
		UnreadCount: w.UnreadCount,
		IsOnline:    w.IsOnline,
	}
}

// MyConversation returns the non-staff user's single conversation id.
// ErrNoConversation means none exists yet and one must be created on first
// send.
func (c *Client) MyConversation(ctx context.Context) (string, error) {
	var resp wireConversation
	err := c.doJSON(ctx, http.MethodGet, "/api/chat/conversation/", nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return "", ErrNoConversation
	}
	if err != nil {
		return "", err
	}
	return resp.CID, nil
}

// CreateConversation creates the user's conversation and returns its id. A
// conflict means one already exists, which is just as good: its id is
// fetched and returned.
func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	var resp wireConversation
	err := c.doJSON(ctx, http.MethodPost, "/api/chat/conversation/", nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusConflict || apiErr.StatusCode == http.StatusBadRequest) {
		return c.MyConversation(ctx)
	}
	if err != nil {
		return "", err
	}
	return resp.CID, nil
}

// ListConversations returns every conversation, for staff accounts.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	var resp []wireConversation
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/conversation/", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]ConversationSummary, 0, len(resp))
	for _, w := range resp {
		out = append(out, w.toSummary())
	}
	return out, nil
}
