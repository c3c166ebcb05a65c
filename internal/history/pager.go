// Package history loads conversation backlog in cursor pages and keeps the
// historical message layer that the thread store merges live traffic over.
package history

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bishaldk/samvad/internal/thread"
)

// Page is one page of backlog, newest first, as served by the messages
// endpoint.
type Page struct {
	Results  []thread.Message
	Next     string
	Previous string
}

// Fetcher retrieves one page of a conversation's backlog. An empty cursor
// means the newest page.
type Fetcher interface {
	FetchMessages(ctx context.Context, conversation, cursor string) (Page, error)
}

// Pager accumulates backlog pages for one conversation at a time. Older pages
// are prepended; a failed fetch keeps its cursor so the same page can be
// retried.
type Pager struct {
	mu      sync.Mutex
	fetcher Fetcher
	logger  *zap.Logger

	conversation string
	messages     []thread.Message // ascending by timestamp
	next         string
	fetching     bool
	loaded       bool
}

// NewPager creates a pager with no conversation selected.
func NewPager(f Fetcher, logger *zap.Logger) *Pager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pager{fetcher: f, logger: logger}
}

// SetConversation switches conversations, discarding all loaded backlog.
func (p *Pager) SetConversation(conversation string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conversation = conversation
	p.messages = nil
	p.next = ""
	p.fetching = false
	p.loaded = false
}

// LoadInitial fetches the newest page. Calling it again is a no-op once a
// page has loaded.
func (p *Pager) LoadInitial(ctx context.Context) error {
	p.mu.Lock()
	if p.conversation == "" {
		p.mu.Unlock()
		return fmt.Errorf("no conversation selected")
	}
	if p.loaded || p.fetching {
		p.mu.Unlock()
		return nil
	}
	p.fetching = true
	conversation := p.conversation
	p.mu.Unlock()

	page, err := p.fetcher.FetchMessages(ctx, conversation, "")
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetching = false
	if conversation != p.conversation {
		return nil // switched away mid-fetch
	}
	if err != nil {
		return fmt.Errorf("loading backlog: %w", err)
	}
	p.messages = ascending(page.Results)
	p.next = page.Next
	p.loaded = true
	return nil
}

// LoadOlder fetches the next older page and prepends it. It returns how many
// messages were added so the view can keep its scroll anchor. Concurrent
// calls are collapsed: while a fetch is in flight further calls return zero.
func (p *Pager) LoadOlder(ctx context.Context) (int, error) {
	p.mu.Lock()
	if !p.loaded || p.fetching || p.next == "" {
		p.mu.Unlock()
		return 0, nil
	}
	p.fetching = true
	conversation := p.conversation
	cursor := p.next
	p.mu.Unlock()

	page, err := p.fetcher.FetchMessages(ctx, conversation, cursor)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetching = false
	if conversation != p.conversation {
		return 0, nil
	}
	if err != nil {
		// p.next is untouched, the same page can be retried.
		return 0, fmt.Errorf("loading older page: %w", err)
	}
	older := ascending(page.Results)
	p.messages = append(older, p.messages...)
	p.next = page.Next
	return len(older), nil
}

// Messages returns the loaded backlog in ascending timestamp order.
func (p *Pager) Messages() []thread.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]thread.Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// HasMore reports whether an older page remains, or nothing has loaded yet.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.loaded || p.next != ""
}

// Fetching reports whether a page fetch is in flight.
func (p *Pager) Fetching() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetching
}

// ascending reverses a newest-first page into ascending order.
func ascending(page []thread.Message) []thread.Message {
	out := make([]thread.Message, len(page))
	for i, m := range page {
		out[len(page)-1-i] = m
	}
	return out
}
