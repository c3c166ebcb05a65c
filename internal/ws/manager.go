package ws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bishaldk/samvad/internal/bus"
)

const (
	// keepaliveInterval matches the server's idle timeout window.
	keepaliveInterval = 28 * time.Second

	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// ErrSocketClosed is returned by send operations when the socket is not open.
var ErrSocketClosed = errors.New("socket is not open")

// Manager owns a single chat socket for one conversation. It dials once,
// pumps inbound frames onto the bus, sends keepalives while open, and goes
// terminal on the first error. Switching conversations or rotating tokens
// means discarding the manager and creating a new one.
type Manager struct {
	conversation string
	endpoint     string
	bus          *bus.Bus
	logger       *zap.Logger
	machine      *Machine

	writeMu sync.Mutex
	conn    *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a manager for one conversation socket. The token is
// baked into the endpoint; a refreshed token requires a new manager.
func NewManager(socketURL, conversation, token string, b *bus.Bus, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		conversation: conversation,
		endpoint: fmt.Sprintf("%s/ws/chat/%s/?token=%s",
			socketURL, conversation, url.QueryEscape(token)),
		bus:     b,
		logger:  logger.With(zap.String("conversation", conversation)),
		machine: NewMachine(conversation, b),
		done:    make(chan struct{}),
	}
}

// Open dials the socket and starts the read and keepalive loops. It can be
// called at most once per manager.
func (m *Manager) Open(ctx context.Context) error {
	if err := m.machine.Transition(Connecting); err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, m.endpoint, nil)
	if err != nil {
		_ = m.machine.Transition(Closed)
		return fmt.Errorf("dialing chat socket: %w", err)
	}

	m.conn = conn
	if err := m.machine.Transition(Open); err != nil {
		conn.Close()
		return err
	}
	m.logger.Info("chat socket open")

	go m.readLoop()
	go m.keepalive()
	return nil
}

// State returns the current socket state.
func (m *Manager) State() State {
	return m.machine.Current()
}

// Close tears the socket down. Safe to call multiple times and in any state.
func (m *Manager) Close() {
	m.shutdown(nil)
}

// Done is closed when the socket has fully shut down.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

func (m *Manager) shutdown(cause error) {
	m.closeOnce.Do(func() {
		if m.machine.Current() != Closed {
			_ = m.machine.Transition(Closed)
		}
		if m.conn != nil {
			m.writeMu.Lock()
			_ = m.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			m.writeMu.Unlock()
			m.conn.Close()
		}
		close(m.done)
		if cause != nil {
			m.logger.Warn("chat socket closed", zap.Error(cause))
		} else {
			m.logger.Info("chat socket closed")
		}
	})
}

func (m *Manager) readLoop() {
	for {
		_, data, err := m.conn.ReadMessage()
		if err != nil {
			m.shutdown(err)
			return
		}
		evt, ok, perr := normalize(m.conversation, data)
		if perr != nil {
			m.logger.Warn("dropping malformed frame", zap.Error(perr))
			continue
		}
		if ok {
			m.bus.Publish(evt)
		}
	}
}

// keepalive sends a heartbeat every keepaliveInterval while the socket is
// open. The timer dies with the socket, never outliving it.
func (m *Manager) keepalive() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := m.writeJSON(heartbeatFrame{Type: frameHeartbeat}); err != nil {
				m.shutdown(err)
				return
			}
		case <-m.done:
			return
		}
	}
}

// SendText sends a text message frame.
func (m *Manager) SendText(text string) error {
	return m.writeJSON(chatMessageFrame{Type: frameChatMessage, Text: text})
}

// SendImage sends an image reference with an optional caption.
func (m *Manager) SendImage(image, caption string) error {
	return m.writeJSON(imageFrame{Type: frameImage, Image: image, Text: caption})
}

// SendTyping reports the local typing indicator state.
func (m *Manager) SendTyping(isTyping bool) error {
	return m.writeJSON(typingFrame{Type: frameTyping, IsTyping: isTyping})
}

// SendRead tells the server every message addressed to us has been seen.
func (m *Manager) SendRead() error {
	return m.writeJSON(readFrame{Type: frameRead})
}

func (m *Manager) writeJSON(v any) error {
	if m.machine.Current() != Open {
		return ErrSocketClosed
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = m.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return m.conn.WriteJSON(v)
}
