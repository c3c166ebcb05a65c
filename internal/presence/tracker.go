package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bishaldk/samvad/internal/bus"
	"github.com/bishaldk/samvad/internal/thread"
)

// Typing entries expire if no "stopped typing" frame ever arrives. The
// backend sends one, but it can be lost with the socket; the TTL is the
// fallback.
const typingTTL = 6 * time.Second

// OnlineUser is one entry of an online_users frame.
type OnlineUser struct {
	ID      string
	IsStaff bool
}

// OnlineListEvent is the normalized online_users frame: the full set of
// participants currently connected to the conversation.
type OnlineListEvent struct {
	Conversation string
	Users        []OnlineUser
}

// Tracker keeps the typing-presence set and the counterpart's online state
// for the active conversation.
type Tracker struct {
	mu     sync.Mutex
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc

	viewerIsStaff bool
	conversation  string
	counterpart   string

	online bool
	typing map[string]typingEntry
}

type typingEntry struct {
	name string
	seen time.Time
}

// NewTracker creates an empty presence tracker.
func NewTracker(b *bus.Bus, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{bus: b, logger: logger, typing: make(map[string]typingEntry)}
}

// SetViewer records whether the local user is staff, which decides who
// counts as the counterpart.
func (t *Tracker) SetViewer(isStaff bool) {
	t.mu.Lock()
	t.viewerIsStaff = isStaff
	t.mu.Unlock()
}

// SetConversation switches the active conversation, clearing typing and
// online state.
func (t *Tracker) SetConversation(conversation, counterpart string) {
	t.mu.Lock()
	t.conversation = conversation
	t.counterpart = counterpart
	t.online = false
	t.typing = make(map[string]typingEntry)
	t.mu.Unlock()
	t.publishChanged(conversation)
}

// Start consumes chat.* events from the bus and sweeps expired typing
// entries until ctx is done.
func (t *Tracker) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	ch, unsub := t.bus.Subscribe("chat.", 128)

	go func() {
		defer unsub()
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case evt := <-ch:
				t.handleEvent(evt)
			case <-ticker.C:
				t.sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the consumer goroutine.
func (t *Tracker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *Tracker) handleEvent(evt bus.Event) {
	switch p := evt.Payload.(type) {
	case thread.TypingEvent:
		t.ApplyTyping(p)
	case thread.PresenceEvent:
		t.ApplyPresence(p)
	case OnlineListEvent:
		t.ApplyOnlineList(p)
	}
}

// ApplyTyping inserts or removes a participant from the typing set.
func (t *Tracker) ApplyTyping(evt thread.TypingEvent) {
	t.mu.Lock()
	if !t.active(evt.Conversation) {
		t.mu.Unlock()
		return
	}
	if evt.IsTyping {
		t.typing[evt.UserID] = typingEntry{name: evt.SenderName, seen: time.Now()}
	} else {
		delete(t.typing, evt.UserID)
	}
	t.mu.Unlock()
	t.publishChanged(evt.Conversation)
}

// ApplyPresence updates the counterpart's online flag from a user_status
// frame.
func (t *Tracker) ApplyPresence(evt thread.PresenceEvent) {
	t.mu.Lock()
	if !t.active(evt.Conversation) || !t.isCounterpart(evt.UserID, evt.IsStaff) {
		t.mu.Unlock()
		return
	}
	t.online = evt.Online
	if !evt.Online {
		delete(t.typing, evt.UserID)
	}
	t.mu.Unlock()
	t.publishChanged(evt.Conversation)
}

// ApplyOnlineList replaces the counterpart's online flag from the full
// online_users roster.
func (t *Tracker) ApplyOnlineList(evt OnlineListEvent) {
	t.mu.Lock()
	if !t.active(evt.Conversation) {
		t.mu.Unlock()
		return
	}
	online := false
	for _, u := range evt.Users {
		if t.isCounterpart(u.ID, u.IsStaff) {
			online = true
			break
		}
	}
	t.online = online
	t.mu.Unlock()
	t.publishChanged(evt.Conversation)
}

// Online reports whether the conversation counterpart is connected.
func (t *Tracker) Online() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.online
}

// TypingNames returns the display names currently composing, sorted for
// stable rendering. Expired entries are pruned on read.
func (t *Tracker) TypingNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked(time.Now())
	names := make([]string, 0, len(t.typing))
	for _, e := range t.typing {
		names = append(names, e.name)
	}
	sort.Strings(names)
	return names
}

func (t *Tracker) sweep() {
	t.mu.Lock()
	before := len(t.typing)
	t.pruneLocked(time.Now())
	changed := len(t.typing) != before
	conversation := t.conversation
	t.mu.Unlock()
	if changed {
		t.publishChanged(conversation)
	}
}

func (t *Tracker) pruneLocked(now time.Time) {
	for id, e := range t.typing {
		if now.Sub(e.seen) > typingTTL {
			delete(t.typing, id)
		}
	}
}

func (t *Tracker) active(conversation string) bool {
	return conversation == t.conversation && t.conversation != ""
}

func (t *Tracker) isCounterpart(userID string, isStaff bool) bool {
	if t.viewerIsStaff {
		return userID == t.counterpart
	}
	return isStaff
}

func (t *Tracker) publishChanged(conversation string) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(bus.Event{
		Kind:         bus.KindPresenceChanged,
		Conversation: conversation,
		Timestamp:    time.Now(),
	})
}
