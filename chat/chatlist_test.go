package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"linguachat/backend"
)

// fakeChatFeed mirrors fakeFeed for chat-set snapshots.
type fakeChatFeed struct {
	mu         sync.Mutex
	onSnapshot func([]backend.Chat)
	closed     bool
}

func (f *fakeChatFeed) subscribe(userID string, onSnapshot func([]backend.Chat), onError func(error)) (Closer, error) {
	f.mu.Lock()
	f.onSnapshot = onSnapshot
	f.mu.Unlock()
	return f, nil
}

func (f *fakeChatFeed) push(chats []backend.Chat) {
	f.mu.Lock()
	deliver := f.onSnapshot
	f.mu.Unlock()
	deliver(chats)
}

func (f *fakeChatFeed) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// chatListBackend bundles the enrichment callbacks with controllable
// per-chat data.
type chatListBackend struct {
	mu       sync.Mutex
	profiles map[string]backend.Profile
	messages map[string]bool
	unread   map[string]int
}

func (b *chatListBackend) profile(ctx context.Context, uid string) (*backend.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[uid]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &p, nil
}

func (b *chatListBackend) hasMessages(ctx context.Context, chatID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.messages[chatID], nil
}

func (b *chatListBackend) unreadFor(ctx context.Context, chatID, userID string) ([]backend.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.Message, b.unread[chatID])
	return out, nil
}

func chatBetween(id, a, b string) backend.Chat {
	return backend.Chat{ID: id, ParticipantIDs: []string{a, b}}
}

func openTestChatList(t *testing.T, feed *fakeChatFeed, store *chatListBackend) (*ChatList, chan []ChatSummary) {
	t.Helper()
	lists := make(chan []ChatSummary, 8)
	list, err := OpenChatList(ChatListOptions{
		ViewerID:    "viewer",
		Subscribe:   feed.subscribe,
		Profile:     store.profile,
		HasMessages: store.hasMessages,
		Unread:      store.unreadFor,
		OnList:      func(l []ChatSummary) { lists <- l },
	})
	if err != nil {
		t.Fatalf("open chat list: %v", err)
	}
	t.Cleanup(list.Close)
	return list, lists
}

func waitForList(t *testing.T, ch chan []ChatSummary) []ChatSummary {
	t.Helper()
	select {
	case list := <-ch:
		return list
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for a chat list")
		return nil
	}
}

func TestChatListEnrichesAndCounts(t *testing.T) {
	feed := &fakeChatFeed{}
	store := &chatListBackend{
		profiles: map[string]backend.Profile{
			"alice": {UID: "alice", DisplayName: "Alice"},
			"bob":   {UID: "bob", DisplayName: "Bob"},
		},
		messages: map[string]bool{"c1": true, "c2": true},
		unread:   map[string]int{"c1": 2},
	}
	_, lists := openTestChatList(t, feed, store)

	feed.push([]backend.Chat{
		chatBetween("c1", "viewer", "alice"),
		chatBetween("c2", "bob", "viewer"),
	})

	list := waitForList(t, lists)
	if len(list) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(list))
	}
	if list[0].Counterpart.UID != "alice" || list[1].Counterpart.UID != "bob" {
		t.Fatalf("counterparts resolved wrong: %q, %q", list[0].Counterpart.UID, list[1].Counterpart.UID)
	}
	if list[0].UnreadCount != 2 || list[1].UnreadCount != 0 {
		t.Fatalf("unread counts wrong: %d, %d", list[0].UnreadCount, list[1].UnreadCount)
	}
}

func TestChatListDiscardsEmptyChats(t *testing.T) {
	feed := &fakeChatFeed{}
	store := &chatListBackend{
		profiles: map[string]backend.Profile{
			"alice": {UID: "alice"},
			"bob":   {UID: "bob"},
		},
		messages: map[string]bool{"c1": true}, // c2 has never had a message
	}
	_, lists := openTestChatList(t, feed, store)

	feed.push([]backend.Chat{
		chatBetween("c1", "viewer", "alice"),
		chatBetween("c2", "viewer", "bob"),
	})

	list := waitForList(t, lists)
	if len(list) != 1 || list[0].Chat.ID != "c1" {
		t.Fatalf("expected only the chat with messages, got %d rows", len(list))
	}
}

func TestChatListDiscardsDeletedAndUnresolvable(t *testing.T) {
	feed := &fakeChatFeed{}
	store := &chatListBackend{
		profiles: map[string]backend.Profile{"alice": {UID: "alice"}},
		messages: map[string]bool{"c1": true, "c2": true, "c3": true},
	}
	_, lists := openTestChatList(t, feed, store)

	deleted := chatBetween("c2", "viewer", "alice")
	deleted.DeletedAt = time.Now().UnixMilli()

	feed.push([]backend.Chat{
		chatBetween("c1", "viewer", "alice"),
		deleted,
		chatBetween("c3", "viewer", "ghost"), // no profile on record
	})

	list := waitForList(t, lists)
	if len(list) != 1 || list[0].Chat.ID != "c1" {
		t.Fatalf("expected deleted and unresolvable chats discarded, got %d rows", len(list))
	}
}

func TestChatListPreservesSnapshotOrder(t *testing.T) {
	feed := &fakeChatFeed{}
	store := &chatListBackend{
		profiles: map[string]backend.Profile{
			"alice": {UID: "alice"},
			"bob":   {UID: "bob"},
			"carol": {UID: "carol"},
		},
		messages: map[string]bool{"c1": true, "c2": true, "c3": true},
	}
	_, lists := openTestChatList(t, feed, store)

	feed.push([]backend.Chat{
		chatBetween("c3", "viewer", "carol"),
		chatBetween("c1", "viewer", "alice"),
		chatBetween("c2", "viewer", "bob"),
	})

	list := waitForList(t, lists)
	if len(list) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(list))
	}
	if list[0].Chat.ID != "c3" || list[1].Chat.ID != "c1" || list[2].Chat.ID != "c2" {
		t.Fatalf("rows out of snapshot order: %q %q %q", list[0].Chat.ID, list[1].Chat.ID, list[2].Chat.ID)
	}
}

func TestChatListCloseStopsPublishing(t *testing.T) {
	feed := &fakeChatFeed{}
	store := &chatListBackend{
		profiles: map[string]backend.Profile{"alice": {UID: "alice"}},
		messages: map[string]bool{"c1": true},
	}
	list, lists := openTestChatList(t, feed, store)

	list.Close()
	list.Close()

	feed.mu.Lock()
	closed := feed.closed
	feed.mu.Unlock()
	if !closed {
		t.Fatalf("expected the feed handle to be closed")
	}

	feed.push([]backend.Chat{chatBetween("c1", "viewer", "alice")})
	select {
	case <-lists:
		t.Fatalf("list published after Close")
	case <-time.After(200 * time.Millisecond):
	}
}
