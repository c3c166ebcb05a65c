package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bishaldk/samvad/internal/history"
	"github.com/bishaldk/samvad/internal/thread"
)

// wireMessage is a persisted message row. Unlike live frames, which key on
// message_id and carry the sender's name and email, the history endpoint
// serializes the model directly: the key is mid and only the sender pk is
// present.
type wireMessage struct {
	MID         json.Number `json:"mid"`
	Message     string      `json:"message"`
	Image       string      `json:"image"`
	MessageType string      `json:"message_type"`
	Sender      json.Number `json:"sender"`
	Timestamp   string      `json:"timestamp"`
	IsRead      bool        `json:"is_read"`
}

func (w wireMessage) toMessage(conversation string) thread.Message {
	kind := thread.Kind(w.MessageType)
	if kind == "" {
		kind = thread.KindText
		if w.Image != "" {
			kind = thread.KindImage
		}
	}
	return thread.Message{
		MID:          w.MID.String(),
		Conversation: conversation,
		Sender:       w.Sender.String(),
		Body:         w.Message,
		Image:        w.Image,
		Kind:         kind,
		Timestamp:    w.Timestamp,
		Status:       thread.InferFromRead(w.IsRead),
		IsRead:       w.IsRead,
	}
}

// FetchMessages loads one backlog page for a conversation. An empty cursor
// fetches the newest page. Implements history.Fetcher.
func (c *Client) FetchMessages(ctx context.Context, conversation, cursor string) (history.Page, error) {
	path := fmt.Sprintf("/api/chat/conversation/%s/messages/", conversation)
	if cursor != "" {
		path += "?cursor=" + url.QueryEscape(cursor)
	}

	var resp struct {
		Results  []wireMessage `json:"results"`
		Next     string        `json:"next"`
		Previous string        `json:"previous"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return history.Page{}, err
	}

	page := history.Page{
		Results:  make([]thread.Message, 0, len(resp.Results)),
		Next:     cursorFrom(resp.Next),
		Previous: cursorFrom(resp.Previous),
	}
	for _, w := range resp.Results {
		page.Results = append(page.Results, w.toMessage(conversation))
	}
	return page, nil
}

// cursorFrom extracts the cursor query parameter from a pagination link.
func cursorFrom(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get("cursor")
}
