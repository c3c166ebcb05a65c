package ws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// firstMessageWait bounds how long we wait for a freshly created
// conversation's socket to come up before giving up on the first send.
const firstMessageWait = 5 * time.Second

// ErrHandshakeTimeout is returned when the short-lived first-message socket
// could not be established in time.
var ErrHandshakeTimeout = errors.New("socket handshake timed out")

// FirstMessageText delivers the very first message of a just-created
// conversation over a short-lived socket, then closes it. The caller's
// long-lived manager takes over afterwards.
func FirstMessageText(ctx context.Context, socketURL, conversation, token, text string) error {
	return sendEphemeral(ctx, socketURL, conversation, token,
		chatMessageFrame{Type: frameChatMessage, Text: text})
}

// FirstMessageImage is FirstMessageText for an image send.
func FirstMessageImage(ctx context.Context, socketURL, conversation, token, image, caption string) error {
	return sendEphemeral(ctx, socketURL, conversation, token,
		imageFrame{Type: frameImage, Image: image, Text: caption})
}

func sendEphemeral(ctx context.Context, socketURL, conversation, token string, frame any) error {
	ctx, cancel := context.WithTimeout(ctx, firstMessageWait)
	defer cancel()

	endpoint := fmt.Sprintf("%s/ws/chat/%s/?token=%s",
		socketURL, conversation, url.QueryEscape(token))
	dialer := websocket.Dialer{HandshakeTimeout: firstMessageWait}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if ctx.Err() != nil {
			return ErrHandshakeTimeout
		}
		return fmt.Errorf("dialing first-message socket: %w", err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("sending first message: %w", err)
	}
	return nil
}
