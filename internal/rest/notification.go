package rest

import (
	"context"
	"net/http"

	"github.com/bishaldk/samvad/internal/notify"
)

// Notifications fetches the current notification feed, used to seed the
// local copy before the notification socket takes over.
func (c *Client) Notifications(ctx context.Context) ([]notify.Notification, error) {
	var resp []notify.Notification
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/notifications/", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
