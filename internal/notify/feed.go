package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bishaldk/samvad/internal/bus"
)

// Feed holds the current notification list. It is seeded from the REST
// endpoint once and then driven by notify.* bus events.
type Feed struct {
	mu     sync.Mutex
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc

	items map[string]Notification
}

// NewFeed creates an empty feed.
func NewFeed(b *bus.Bus, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{bus: b, logger: logger, items: make(map[string]Notification)}
}

// Seed replaces the feed contents with a REST-fetched snapshot.
func (f *Feed) Seed(list []Notification) {
	f.mu.Lock()
	f.items = make(map[string]Notification, len(list))
	for _, n := range list {
		f.items[n.NID] = n
	}
	f.mu.Unlock()
	f.publishUpdated()
}

// Start subscribes the feed to notification events until ctx is cancelled.
func (f *Feed) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()

	ch, unsub := f.bus.Subscribe("notify.", 64)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-ch:
				f.handleEvent(evt)
			}
		}
	}()
}

// Stop detaches the feed from the bus.
func (f *Feed) Stop() {
	f.mu.Lock()
	cancel := f.cancel
	f.cancel = nil
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (f *Feed) handleEvent(evt bus.Event) {
	switch p := evt.Payload.(type) {
	case NotificationEvent:
		f.Apply(p.Notification)
	case ReadEvent:
		f.MarkRead(p.NID)
	}
}

// Apply inserts or replaces one notification.
func (f *Feed) Apply(n Notification) {
	f.mu.Lock()
	f.items[n.NID] = n
	f.mu.Unlock()
	f.publishUpdated()
}

// MarkRead flips a notification to read locally. Telling the server is the
// socket manager's job.
func (f *Feed) MarkRead(nid string) {
	f.mu.Lock()
	n, ok := f.items[nid]
	if ok && !n.IsRead {
		n.IsRead = true
		f.items[nid] = n
	} else {
		ok = false
	}
	f.mu.Unlock()
	if ok {
		f.publishUpdated()
	}
}

// All returns every notification, newest first.
func (f *Feed) All() []Notification {
	f.mu.Lock()
	out := make([]Notification, 0, len(f.items))
	for _, n := range f.items {
		out = append(out, n)
	}
	f.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

// UnreadCount returns how many notifications are unread.
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.items {
		if !n.IsRead {
			count++
		}
	}
	return count
}

func (f *Feed) publishUpdated() {
	if f.bus == nil {
		return
	}
	f.bus.Publish(bus.Event{Kind: bus.KindFeedUpdated, Timestamp: time.Now()})
}
