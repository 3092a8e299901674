package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"linguachat/backend"
)

const defaultEnrichTimeout = 20 * time.Second

// ChatSummary is one enriched row of the chat list.
type ChatSummary struct {
	Chat        backend.Chat
	Counterpart backend.Profile
	UnreadCount int
}

// ChatListOptions configures the chat list aggregator.
type ChatListOptions struct {
	ViewerID string

	Subscribe SubscribeChatsFunc

	// Profile resolves a counterpart; unresolvable chats are discarded.
	Profile func(ctx context.Context, uid string) (*backend.Profile, error)

	// HasMessages gates listing: chats with no exchanged messages at all
	// are discarded.
	HasMessages func(ctx context.Context, chatID string) (bool, error)

	// Unread returns the viewer's unacknowledged messages for a chat.
	Unread func(ctx context.Context, chatID, userID string) ([]backend.Message, error)

	// OnList receives each fully enriched snapshot. The list only updates
	// once every per-chat enrichment for the snapshot has resolved.
	OnList func([]ChatSummary)

	OnError func(error)

	EnrichTimeout time.Duration
}

// ChatList is a live aggregation of the viewer's chat set.
type ChatList struct {
	options ChatListOptions

	ctx    context.Context
	cancel context.CancelFunc

	handle    Closer
	closeOnce sync.Once

	mu         sync.Mutex
	generation uint64
	closed     bool

	publishMu sync.Mutex
	wg        sync.WaitGroup
}

// OpenChatList validates options and starts the chat-set feed.
func OpenChatList(options ChatListOptions) (*ChatList, error) {
	if options.ViewerID == "" {
		return nil, errors.New("viewer ID is required")
	}
	if options.Subscribe == nil {
		return nil, errors.New("subscribe func is required")
	}
	if options.Profile == nil {
		return nil, errors.New("profile func is required")
	}
	if options.HasMessages == nil {
		return nil, errors.New("has-messages func is required")
	}
	if options.Unread == nil {
		return nil, errors.New("unread func is required")
	}
	if options.OnList == nil {
		return nil, errors.New("list callback is required")
	}
	if options.EnrichTimeout <= 0 {
		options.EnrichTimeout = defaultEnrichTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	list := &ChatList{
		options: options,
		ctx:     ctx,
		cancel:  cancel,
	}

	handle, err := options.Subscribe(options.ViewerID, list.handleSnapshot, list.reportError)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to chat set for %q: %w", options.ViewerID, err)
	}
	list.handle = handle

	return list, nil
}

// Close cancels the feed and discards in-flight enrichments. Idempotent.
func (l *ChatList) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()

		l.cancel()
		if l.handle != nil {
			l.handle.Close()
		}
		l.wg.Wait()
	})
}

func (l *ChatList) handleSnapshot(chats []backend.Chat) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.generation++
	gen := l.generation
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.enrichSnapshot(gen, chats)
	}()
}

func (l *ChatList) enrichSnapshot(gen uint64, chats []backend.Chat) {
	ctx, cancel := context.WithTimeout(l.ctx, l.options.EnrichTimeout)
	defer cancel()

	// Results keep snapshot order; discarded chats stay nil.
	results := make([]*ChatSummary, len(chats))
	var wg sync.WaitGroup
	for i, c := range chats {
		if c.DeletedAt != 0 {
			continue
		}
		counterpartID := c.Counterpart(l.options.ViewerID)
		if counterpartID == "" {
			continue
		}

		wg.Add(1)
		go func(slot int, chat backend.Chat, counterpartID string) {
			defer wg.Done()
			summary, err := l.enrichChat(ctx, chat, counterpartID)
			if err != nil {
				l.reportError(err)
				return
			}
			results[slot] = summary
		}(i, c, counterpartID)
	}
	wg.Wait()

	list := make([]ChatSummary, 0, len(results))
	for _, summary := range results {
		if summary != nil {
			list = append(list, *summary)
		}
	}

	l.publishMu.Lock()
	defer l.publishMu.Unlock()

	l.mu.Lock()
	stale := l.closed || gen != l.generation
	l.mu.Unlock()
	if stale {
		return
	}
	l.options.OnList(list)
}

// enrichChat resolves one chat row. A nil, nil return means the chat is
// silently discarded (unknown counterpart, no messages yet).
func (l *ChatList) enrichChat(ctx context.Context, chat backend.Chat, counterpartID string) (*ChatSummary, error) {
	profile, err := l.options.Profile(ctx, counterpartID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve counterpart %q: %w", counterpartID, err)
	}
	if profile == nil {
		return nil, nil
	}

	hasMessages, err := l.options.HasMessages(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("check messages for chat %q: %w", chat.ID, err)
	}
	if !hasMessages {
		return nil, nil
	}

	unread, err := l.options.Unread(ctx, chat.ID, l.options.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("count unread for chat %q: %w", chat.ID, err)
	}

	return &ChatSummary{
		Chat:        chat,
		Counterpart: *profile,
		UnreadCount: len(unread),
	}, nil
}

func (l *ChatList) reportError(err error) {
	if err == nil || l.options.OnError == nil {
		return
	}
	l.options.OnError(err)
}
