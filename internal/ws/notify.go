package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bishaldk/samvad/internal/bus"
	"github.com/bishaldk/samvad/internal/notify"
)

// notifyFrame covers both inbound shapes on the notification socket.
type notifyFrame struct {
	Type           string              `json:"type"`
	Notification   notify.Notification `json:"notification"`
	NotificationID json.Number         `json:"notification_id"`
}

// NotifyManager owns the account-wide notification socket. Like Manager it is
// single-use: it dials once and goes terminal on the first error.
type NotifyManager struct {
	endpoint string
	bus      *bus.Bus
	logger   *zap.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
}

// NewNotifyManager creates a manager for the notification socket.
func NewNotifyManager(socketURL, token string, b *bus.Bus, logger *zap.Logger) *NotifyManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifyManager{
		endpoint: fmt.Sprintf("%s/ws/notifications/?token=%s", socketURL, url.QueryEscape(token)),
		bus:      b,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Open dials the notification socket and starts its read loop.
func (m *NotifyManager) Open(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, m.endpoint, nil)
	if err != nil {
		close(m.done)
		return fmt.Errorf("dialing notification socket: %w", err)
	}
	m.conn = conn
	m.logger.Info("notification socket open")
	go m.readLoop()
	return nil
}

// Close tears the socket down. Safe to call multiple times.
func (m *NotifyManager) Close() {
	m.shutdown(nil)
}

// Done is closed when the socket has fully shut down.
func (m *NotifyManager) Done() <-chan struct{} {
	return m.done
}

// MarkRead tells the server a notification was seen.
func (m *NotifyManager) MarkRead(nid string) error {
	if m.conn == nil {
		return ErrSocketClosed
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = m.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return m.conn.WriteJSON(readNotificationFrame{Type: frameReadNotif, ID: nid})
}

func (m *NotifyManager) shutdown(cause error) {
	m.closeOnce.Do(func() {
		if m.conn != nil {
			m.conn.Close()
		}
		close(m.done)
		if cause != nil {
			m.logger.Warn("notification socket closed", zap.Error(cause))
		} else {
			m.logger.Info("notification socket closed")
		}
	})
}

func (m *NotifyManager) readLoop() {
	for {
		_, data, err := m.conn.ReadMessage()
		if err != nil {
			m.shutdown(err)
			return
		}
		var f notifyFrame
		if err := json.Unmarshal(data, &f); err != nil {
			m.logger.Warn("dropping malformed notification frame", zap.Error(err))
			continue
		}
		now := time.Now()
		switch f.Type {
		case frameNotification:
			m.bus.Publish(bus.Event{
				Kind:      bus.KindNotification,
				Timestamp: now,
				Payload:   notify.NotificationEvent{Notification: f.Notification},
			})
		case frameRead:
			m.bus.Publish(bus.Event{
				Kind:      bus.KindNotificationRead,
				Timestamp: now,
				Payload:   notify.ReadEvent{NID: f.NotificationID.String()},
			})
		default:
			m.logger.Debug("ignoring notification frame", zap.String("type", f.Type))
		}
	}
}
