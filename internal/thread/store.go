package thread

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bishaldk/samvad/internal/bus"
)

// Store reconciles three message sources for the active conversation: pages
// of persisted history, live socket events, and optimistic local sends. It
// owns the live layer; the historical layer is owned by the history pager and
// handed in at materialization time.
//
// Every reducer is keyed on the active conversation id. Events tagged with
// any other conversation are dropped — they belong to a socket that was torn
// down.
type Store struct {
	mu     sync.Mutex
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc

	userID       string
	userIsStaff  bool
	conversation string
	counterpart  string // the other participant's user id (staff viewer only)

	live    []Message
	readAll bool // a read frame arrived: all own messages in this conversation are read
}

// NewStore creates an empty reconciliation store.
func NewStore(b *bus.Bus, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{bus: b, logger: logger}
}

// SetIdentity records the authenticated user the reducers compare senders
// against.
func (s *Store) SetIdentity(userID string, isStaff bool) {
	s.mu.Lock()
	s.userID = userID
	s.userIsStaff = isStaff
	s.mu.Unlock()
}

// SetConversation switches the active conversation, discarding the entire
// live layer and all optimistic entries. counterpart is the other
// participant's user id when known (staff viewing a user's conversation).
func (s *Store) SetConversation(conversation, counterpart string) {
	s.mu.Lock()
	s.conversation = conversation
	s.counterpart = counterpart
	s.live = nil
	s.readAll = false
	s.mu.Unlock()
	s.publishUpdated(conversation)
}

// Conversation returns the active conversation id.
func (s *Store) Conversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversation
}

// Start subscribes to chat.* events on the bus and feeds them to the
// reducers until ctx is done.
func (s *Store) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	ch, unsub := s.bus.Subscribe("chat.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				s.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the bus consumer.
func (s *Store) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Store) handleEvent(evt bus.Event) {
	switch p := evt.Payload.(type) {
	case MessageEvent:
		s.ApplyMessage(p)
	case ReadEvent:
		s.ApplyRead(p)
	case StatusUpgradeEvent:
		s.ApplyStatusUpgrade(p)
	case PresenceEvent:
		s.ApplyPresence(p)
	case TypingEvent:
		// Typing state is tracked by the presence package, not here.
	default:
		if evt.Kind == bus.KindChatOnlineList {
			// The roster belongs to the presence tracker.
			return
		}
		s.logger.Warn("unexpected chat event payload", zap.String("kind", evt.Kind))
	}
}

// AppendOptimistic inserts a locally originated send with a temporary
// identifier and returns that identifier. The entry stays until a confirming
// event promotes it, RemoveOptimistic discards it, or the conversation
// changes.
func (s *Store) AppendOptimistic(m Message) string {
	s.mu.Lock()
	m.MID = "temp-" + uuid.NewString()
	m.Conversation = s.conversation
	if m.Sender == "" {
		m.Sender = s.userID
	}
	m.Status = StatusSending
	m.Optimistic = true
	s.live = append(s.live, m)
	conversation := s.conversation
	s.mu.Unlock()

	s.publishUpdated(conversation)
	return m.MID
}

// RemoveOptimistic discards an optimistic entry whose send never reached the
// socket, so the caller can restore the compose box. Reports whether the
// entry was found.
func (s *Store) RemoveOptimistic(tempID string) bool {
	s.mu.Lock()
	found := false
	kept := s.live[:0]
	for _, m := range s.live {
		if m.MID == tempID && m.Optimistic {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	s.live = kept
	conversation := s.conversation
	s.mu.Unlock()

	if found {
		s.publishUpdated(conversation)
	}
	return found
}

// FailOptimistic marks an optimistic entry failed: the socket accepted the
// frame but broke before the server echoed it. The entry stays visible so the
// failure is not silent.
func (s *Store) FailOptimistic(tempID string) {
	s.mu.Lock()
	for i := range s.live {
		if s.live[i].MID == tempID && s.live[i].Optimistic {
			s.live[i].Status = StatusFailed
			break
		}
	}
	conversation := s.conversation
	s.mu.Unlock()
	s.publishUpdated(conversation)
}

// ApplyMessage reconciles a confirmed chat_message/image_message event.
//
// Matching order: first an outstanding optimistic entry with the same kind
// and sender (and, for text, the same body) is promoted in place; failing
// that, an existing confirmed entry with the same MID is merged (duplicate
// confirmations are idempotent); otherwise a new confirmed entry is appended
// (e.g. the echo of a send from another device or the counterpart's message).
func (s *Store) ApplyMessage(evt MessageEvent) {
	s.mu.Lock()
	if !s.active(evt.Conversation) {
		s.mu.Unlock()
		return
	}

	// Promote a matching optimistic entry. Two outstanding identical sends
	// resolve first-match-in-order.
	for i := range s.live {
		m := &s.live[i]
		if !m.Optimistic || m.Kind != evt.Kind || m.Sender != evt.Sender {
			continue
		}
		if evt.Kind == KindText && m.Body != evt.Body {
			continue
		}
		m.MID = evt.MID
		m.Timestamp = evt.Timestamp
		m.Status = evt.statusOr(StatusSent)
		m.IsRead = evt.IsRead
		m.Optimistic = false
		if evt.Kind == KindImage && evt.Image != "" {
			m.Image = evt.Image
			m.LocalPath = ""
		}
		s.unlockAndPublish(evt.Conversation)
		return
	}

	// Merge into an existing confirmed entry.
	for i := range s.live {
		m := &s.live[i]
		if m.MID != evt.MID {
			continue
		}
		m.Timestamp = evt.Timestamp
		m.Status = Upgrade(m.Status, evt.statusOrInferred())
		m.IsRead = m.IsRead || evt.IsRead
		if evt.Kind == KindImage && evt.Image != "" {
			m.Image = evt.Image
			m.LocalPath = ""
		}
		s.unlockAndPublish(evt.Conversation)
		return
	}

	s.live = append(s.live, Message{
		MID:          evt.MID,
		Conversation: evt.Conversation,
		Sender:       evt.Sender,
		SenderName:   evt.SenderName,
		SenderEmail:  evt.SenderEmail,
		Body:         evt.Body,
		Image:        evt.Image,
		Kind:         evt.Kind,
		Timestamp:    evt.Timestamp,
		Status:       evt.statusOrInferred(),
		IsRead:       evt.IsRead,
	})
	s.unlockAndPublish(evt.Conversation)
}

// ApplyRead marks every message sent by the current user read. The watermark
// also covers history entries at materialization time.
func (s *Store) ApplyRead(evt ReadEvent) {
	s.mu.Lock()
	if !s.active(evt.Conversation) {
		s.mu.Unlock()
		return
	}
	s.readAll = true
	for i := range s.live {
		if s.live[i].Sender == s.userID && !s.live[i].Optimistic {
			s.live[i].Status = Upgrade(s.live[i].Status, StatusRead)
			s.live[i].IsRead = true
		}
	}
	s.unlockAndPublish(evt.Conversation)
}

// ApplyStatusUpgrade bumps the current user's sent messages to delivered.
// Anything else is a no-op: the ladder only moves forward and the backend
// only emits delivered here.
func (s *Store) ApplyStatusUpgrade(evt StatusUpgradeEvent) {
	if evt.NewStatus != StatusDelivered {
		return
	}
	s.mu.Lock()
	if !s.active(evt.Conversation) {
		s.mu.Unlock()
		return
	}
	for i := range s.live {
		if s.live[i].Sender == s.userID && s.live[i].Status == StatusSent {
			s.live[i].Status = StatusDelivered
		}
	}
	s.unlockAndPublish(evt.Conversation)
}

// ApplyPresence upgrades the current user's sent messages to delivered when
// the conversation counterpart comes online.
func (s *Store) ApplyPresence(evt PresenceEvent) {
	if !evt.Online {
		return
	}
	s.mu.Lock()
	if !s.active(evt.Conversation) || !s.isCounterpart(evt) {
		s.mu.Unlock()
		return
	}
	for i := range s.live {
		if s.live[i].Sender == s.userID && s.live[i].Status == StatusSent {
			s.live[i].Status = StatusDelivered
		}
	}
	s.unlockAndPublish(evt.Conversation)
}

// Materialize merges the handed-in historical layer with the live layer into
// the single visible list: one entry per confirmed MID, live overlay wins,
// sorted ascending by timestamp with ties kept in merge insertion order.
func (s *Store) Materialize(historical []Message) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := make([]string, 0, len(historical)+len(s.live))
	byKey := make(map[string]Message, len(historical)+len(s.live))

	for _, h := range historical {
		if _, ok := byKey[h.MID]; !ok {
			order = append(order, h.MID)
		}
		byKey[h.MID] = h
	}
	for _, lm := range s.live {
		if _, ok := byKey[lm.MID]; !ok {
			order = append(order, lm.MID)
		}
		byKey[lm.MID] = lm
	}

	out := make([]Message, 0, len(order))
	for _, key := range order {
		m := byKey[key]
		if s.readAll && m.Sender == s.userID && !m.Optimistic {
			m.Status = Upgrade(m.Status, StatusRead)
			m.IsRead = true
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// HasUnreadFromOthers reports whether the materialized view contains unread
// messages not sent by the current user; the caller answers with a read
// frame.
func (s *Store) HasUnreadFromOthers(historical []Message) bool {
	for _, m := range s.Materialize(historical) {
		if !m.IsRead && m.Sender != s.userID {
			return true
		}
	}
	return false
}

func (s *Store) active(conversation string) bool {
	if conversation != s.conversation || s.conversation == "" {
		s.logger.Debug("dropping stale event",
			zap.String("event_conversation", conversation),
			zap.String("active_conversation", s.conversation))
		return false
	}
	return true
}

func (s *Store) isCounterpart(evt PresenceEvent) bool {
	if s.userIsStaff {
		return evt.UserID == s.counterpart
	}
	return evt.IsStaff
}

// unlockAndPublish releases the store lock and emits thread.updated.
func (s *Store) unlockAndPublish(conversation string) {
	s.mu.Unlock()
	s.publishUpdated(conversation)
}

func (s *Store) publishUpdated(conversation string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{
		Kind:         bus.KindThreadUpdated,
		Conversation: conversation,
		Timestamp:    time.Now(),
	})
}

func (e MessageEvent) statusOr(fallback Status) Status {
	if _, ok := statusRank[e.Status]; ok {
		return e.Status
	}
	return fallback
}

func (e MessageEvent) statusOrInferred() Status {
	if _, ok := statusRank[e.Status]; ok {
		return e.Status
	}
	if e.IsRead {
		return StatusRead
	}
	return StatusDelivered
}
