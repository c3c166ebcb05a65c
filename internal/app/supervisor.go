// Package app composes the client: it owns the active conversation, the
// socket lifecycle bound to it, and the send/typing/read flows the UI calls
// into.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bishaldk/samvad/internal/bus"
	"github.com/bishaldk/samvad/internal/history"
	"github.com/bishaldk/samvad/internal/notify"
	"github.com/bishaldk/samvad/internal/presence"
	"github.com/bishaldk/samvad/internal/rest"
	"github.com/bishaldk/samvad/internal/session"
	"github.com/bishaldk/samvad/internal/store"
	"github.com/bishaldk/samvad/internal/thread"
	"github.com/bishaldk/samvad/internal/timeline"
	"github.com/bishaldk/samvad/internal/ws"
)

// typingIdle is how long after the last keystroke the typing indicator is
// withdrawn.
const typingIdle = time.Second

// Supervisor binds one conversation at a time to a live socket. A
// conversation switch or token rotation discards the current socket manager
// and dials a fresh one; managers are never reused.
type Supervisor struct {
	socketURL string
	sess      *session.Session
	rest      *rest.Client
	db        *store.DB
	bus       *bus.Bus
	logger    *zap.Logger

	thread   *thread.Store
	pager    *history.Pager
	presence *presence.Tracker
	feed     *notify.Feed

	mu           sync.Mutex
	conversation string
	manager      *ws.Manager
	notifyMgr    *ws.NotifyManager

	typingMu     sync.Mutex
	typingActive bool
	typingTimer  *time.Timer

	imgMu      sync.Mutex
	imgURL     map[string]string
	imgPending map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSupervisor wires the reconciliation components together.
func NewSupervisor(socketURL string, sess *session.Session, client *rest.Client, db *store.DB, b *bus.Bus, ts *thread.Store, pager *history.Pager, tracker *presence.Tracker, feed *notify.Feed, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		socketURL:  socketURL,
		sess:       sess,
		rest:       client,
		db:         db,
		bus:        b,
		thread:     ts,
		pager:      pager,
		presence:   tracker,
		feed:       feed,
		logger:     logger,
		imgURL:     make(map[string]string),
		imgPending: make(map[string]bool),
	}
}

// Start brings up the bus consumers and, for a logged-in session, the
// notification socket and feed.
func (s *Supervisor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.ctx = ctx
	s.cancel = cancel
	s.mu.Unlock()

	user := s.sess.User()
	s.thread.SetIdentity(user.ID, user.IsStaff)
	s.presence.SetViewer(user.IsStaff)

	s.thread.Start(ctx)
	s.presence.Start(ctx)
	s.feed.Start(ctx)

	if s.sess.Authenticated() {
		s.EnsureNotifications(ctx)
	}

	// Persist refreshed access tokens so a restart keeps the session, and
	// cycle the socket: the old one authenticated with the old token and is
	// never reused.
	s.rest.OnTokenRefresh(func(access string) {
		if err := s.db.UpdateAccessToken(s.sess.Name(), access); err != nil {
			s.logger.Warn("persisting refreshed token", zap.Error(err))
		}
		if err := s.Redial(ctx); err != nil {
			s.logger.Warn("redial after token refresh", zap.Error(err))
		}
	})
}

// Stop tears down the socket and consumers.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.manager != nil {
		s.manager.Close()
		s.manager = nil
	}
	if s.notifyMgr != nil {
		s.notifyMgr.Close()
		s.notifyMgr = nil
	}
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	s.thread.Stop()
	s.presence.Stop()
	s.feed.Stop()
	if cancel != nil {
		cancel()
	}
}

// EnsureNotifications brings up the notification feed and socket when they
// are not running yet, typically right after login.
func (s *Supervisor) EnsureNotifications(ctx context.Context) {
	s.mu.Lock()
	running := s.notifyMgr != nil
	s.mu.Unlock()
	if !running {
		s.startNotifications(ctx)
	}
}

// RefreshIdentity pushes the session's user onto the reconciliation layers,
// needed after a fresh login.
func (s *Supervisor) RefreshIdentity() {
	user := s.sess.User()
	s.thread.SetIdentity(user.ID, user.IsStaff)
	s.presence.SetViewer(user.IsStaff)
}

// PersistLogin stores the session's credentials for the next start.
func (s *Supervisor) PersistLogin() error {
	user := s.sess.User()
	tokens := s.sess.Tokens()
	return s.db.SaveCredentials(&store.Credentials{
		Session:      s.sess.Name(),
		AccessToken:  tokens.Access,
		RefreshToken: tokens.Refresh,
		UserID:       user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsStaff:      user.IsStaff,
	})
}

// Logout invalidates the session server-side and wipes local state.
func (s *Supervisor) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.manager != nil {
		s.manager.Close()
		s.manager = nil
	}
	if s.notifyMgr != nil {
		s.notifyMgr.Close()
		s.notifyMgr = nil
	}
	s.conversation = ""
	s.mu.Unlock()

	err := s.rest.Logout(ctx)
	if derr := s.db.DeleteCredentials(s.sess.Name()); derr != nil && err == nil {
		err = derr
	}
	if cerr := s.db.ClearConversations(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (s *Supervisor) startNotifications(ctx context.Context) {
	list, err := s.rest.Notifications(ctx)
	if err != nil {
		s.logger.Warn("seeding notifications", zap.Error(err))
	} else {
		s.feed.Seed(list)
	}

	mgr := ws.NewNotifyManager(s.socketURL, s.sess.Tokens().Access, s.bus, s.logger)
	if err := mgr.Open(ctx); err != nil {
		s.logger.Warn("notification socket", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.notifyMgr = mgr
	s.mu.Unlock()
}

// SelectConversation makes a conversation active: the previous socket is
// closed, every per-conversation layer is reset, the newest backlog page is
// loaded and a new socket is dialed.
func (s *Supervisor) SelectConversation(ctx context.Context, conversation, counterpart string) error {
	s.mu.Lock()
	if s.manager != nil {
		s.manager.Close()
		s.manager = nil
	}
	s.conversation = conversation
	s.mu.Unlock()

	s.thread.SetConversation(conversation, counterpart)
	s.presence.SetConversation(conversation, counterpart)
	s.pager.SetConversation(conversation)

	if err := s.pager.LoadInitial(ctx); err != nil {
		s.logger.Warn("initial backlog load failed", zap.Error(err))
	}
	if err := s.dial(ctx, conversation); err != nil {
		return err
	}

	// Arriving in a conversation with unread inbound messages acknowledges
	// them.
	if s.thread.HasUnreadFromOthers(s.pager.Messages()) {
		s.MarkRead()
	}
	return nil
}

func (s *Supervisor) dial(ctx context.Context, conversation string) error {
	mgr := ws.NewManager(s.socketURL, conversation, s.sess.Tokens().Access, s.bus, s.logger)
	if err := mgr.Open(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	if s.conversation != conversation {
		s.mu.Unlock()
		mgr.Close()
		return nil
	}
	s.manager = mgr
	s.mu.Unlock()
	return nil
}

// Redial replaces a dead or stale socket for the active conversation, for
// example after a token refresh.
func (s *Supervisor) Redial(ctx context.Context) error {
	s.mu.Lock()
	conversation := s.conversation
	if s.manager != nil {
		s.manager.Close()
		s.manager = nil
	}
	s.mu.Unlock()
	if conversation == "" {
		return nil
	}
	return s.dial(ctx, conversation)
}

// SocketState reports the active socket's lifecycle state.
func (s *Supervisor) SocketState() ws.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manager == nil {
		return ws.Closed
	}
	return s.manager.State()
}

// Messages returns the merged view of backlog and live traffic.
func (s *Supervisor) Messages() []thread.Message {
	return s.thread.Materialize(s.pager.Messages())
}

// LoadOlder pulls one older backlog page, returning how many messages were
// prepended.
func (s *Supervisor) LoadOlder(ctx context.Context) (int, error) {
	return s.pager.LoadOlder(ctx)
}

// SendText inserts an optimistic entry and sends the frame. When no
// conversation exists yet one is created and the message goes out over a
// short-lived first-message socket.
func (s *Supervisor) SendText(ctx context.Context, text string) error {
	s.mu.Lock()
	conversation := s.conversation
	mgr := s.manager
	s.mu.Unlock()

	if conversation == "" {
		return s.sendFirst(ctx, text)
	}

	tempID := s.thread.AppendOptimistic(thread.Message{
		Conversation: conversation,
		Sender:       s.sess.User().ID,
		SenderName:   s.sess.User().DisplayName(),
		Body:         text,
		Kind:         thread.KindText,
		Timestamp:    timeline.Now(),
	})

	if mgr == nil {
		s.thread.RemoveOptimistic(tempID)
		return ws.ErrSocketClosed
	}
	if err := mgr.SendText(text); err != nil {
		if errors.Is(err, ws.ErrSocketClosed) {
			s.thread.RemoveOptimistic(tempID)
		} else {
			s.thread.FailOptimistic(tempID)
		}
		return err
	}
	s.stopTyping() // sending supersedes the typing indicator
	return nil
}

// sendFirst creates the conversation and delivers the first message over an
// ephemeral socket, then promotes the new conversation to active.
func (s *Supervisor) sendFirst(ctx context.Context, text string) error {
	conversation, err := s.rest.CreateConversation(ctx)
	if err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}
	err = ws.FirstMessageText(ctx, s.socketURL, conversation, s.sess.Tokens().Access, text)
	if err != nil {
		return err
	}
	return s.SelectConversation(ctx, conversation, "")
}

func (s *Supervisor) sendFirstImage(ctx context.Context, publicID, caption string) error {
	conversation, err := s.rest.CreateConversation(ctx)
	if err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}
	err = ws.FirstMessageImage(ctx, s.socketURL, conversation, s.sess.Tokens().Access, publicID, caption)
	if err != nil {
		return err
	}
	return s.SelectConversation(ctx, conversation, "")
}

// SendImage uploads the image, inserts an optimistic entry showing the local
// file, and sends the public id over the socket. With no conversation yet,
// the upload doubles as the first message.
func (s *Supervisor) SendImage(ctx context.Context, filename string, r io.Reader, caption string) error {
	s.mu.Lock()
	conversation := s.conversation
	mgr := s.manager
	s.mu.Unlock()

	publicID, err := s.rest.UploadImage(ctx, filename, r)
	if err != nil {
		return fmt.Errorf("uploading image: %w", err)
	}

	if conversation == "" {
		return s.sendFirstImage(ctx, publicID, caption)
	}
	if mgr == nil {
		return ws.ErrSocketClosed
	}

	tempID := s.thread.AppendOptimistic(thread.Message{
		Conversation: conversation,
		Sender:       s.sess.User().ID,
		SenderName:   s.sess.User().DisplayName(),
		Body:         caption,
		Kind:         thread.KindImage,
		LocalPath:    filename,
		Timestamp:    timeline.Now(),
	})

	if err := mgr.SendImage(publicID, caption); err != nil {
		if errors.Is(err, ws.ErrSocketClosed) {
			s.thread.RemoveOptimistic(tempID)
		} else {
			s.thread.FailOptimistic(tempID)
		}
		return err
	}
	return nil
}

// ImageURL resolves a confirmed image's public id into a signed display URL.
// Returns the cached URL immediately, or "" while a lookup is in flight; the
// thread redraws once the URL lands.
func (s *Supervisor) ImageURL(publicID string) string {
	if publicID == "" {
		return ""
	}
	s.imgMu.Lock()
	if u, ok := s.imgURL[publicID]; ok {
		s.imgMu.Unlock()
		return u
	}
	if s.imgPending[publicID] {
		s.imgMu.Unlock()
		return ""
	}
	s.imgPending[publicID] = true
	s.imgMu.Unlock()

	s.mu.Lock()
	ctx := s.ctx
	conversation := s.conversation
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		u, err := s.rest.SignedImageURL(ctx, publicID)
		s.imgMu.Lock()
		delete(s.imgPending, publicID)
		if err == nil {
			s.imgURL[publicID] = u
		}
		s.imgMu.Unlock()
		if err != nil {
			s.logger.Warn("resolving signed image url", zap.Error(err))
			return
		}
		s.bus.Publish(bus.Event{
			Kind:         bus.KindThreadUpdated,
			Conversation: conversation,
			Timestamp:    time.Now(),
		})
	}()
	return ""
}

// NotifyTyping is called on every composer keystroke. The first keystroke
// raises the typing indicator; it drops after one idle second.
func (s *Supervisor) NotifyTyping() {
	s.mu.Lock()
	mgr := s.manager
	s.mu.Unlock()
	if mgr == nil {
		return
	}

	s.typingMu.Lock()
	defer s.typingMu.Unlock()
	if !s.typingActive {
		if err := mgr.SendTyping(true); err != nil {
			return
		}
		s.typingActive = true
	}
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(typingIdle, s.stopTyping)
}

func (s *Supervisor) stopTyping() {
	s.typingMu.Lock()
	defer s.typingMu.Unlock()
	if !s.typingActive {
		return
	}
	s.typingActive = false
	s.mu.Lock()
	mgr := s.manager
	s.mu.Unlock()
	if mgr != nil {
		_ = mgr.SendTyping(false)
	}
}

// MarkRead acknowledges every inbound message in the active conversation.
func (s *Supervisor) MarkRead() {
	s.mu.Lock()
	mgr := s.manager
	s.mu.Unlock()
	if mgr == nil {
		return
	}
	if err := mgr.SendRead(); err != nil {
		s.logger.Warn("sending read receipt", zap.Error(err))
	}
}

// CacheConversations mirrors the fetched conversation list into the local
// db so the sidebar can paint before the next fetch completes.
func (s *Supervisor) CacheConversations(list []rest.ConversationSummary) {
	for _, c := range list {
		err := s.db.UpsertConversation(&store.Conversation{
			CID:         c.CID,
			PeerID:      c.PeerID,
			PeerName:    c.PeerName,
			PeerEmail:   c.PeerEmail,
			UnreadCount: c.UnreadCount,
		})
		if err != nil {
			s.logger.Warn("caching conversation", zap.String("cid", c.CID), zap.Error(err))
			return
		}
	}
}

// CachedConversations returns the stored conversation list.
func (s *Supervisor) CachedConversations() []rest.ConversationSummary {
	rows, err := s.db.ListConversations()
	if err != nil {
		s.logger.Warn("reading cached conversations", zap.Error(err))
		return nil
	}
	out := make([]rest.ConversationSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, rest.ConversationSummary{
			CID:         r.CID,
			PeerID:      r.PeerID,
			PeerName:    r.PeerName,
			PeerEmail:   r.PeerEmail,
			UnreadCount: r.UnreadCount,
		})
	}
	return out
}

// MarkNotificationRead flips one notification locally and tells the server.
func (s *Supervisor) MarkNotificationRead(nid string) {
	s.feed.MarkRead(nid)
	s.mu.Lock()
	mgr := s.notifyMgr
	s.mu.Unlock()
	if mgr != nil {
		if err := mgr.MarkRead(nid); err != nil {
			s.logger.Warn("acknowledging notification", zap.Error(err))
		}
	}
}
