package chat

import (
	"context"
	"fmt"
	"sync"

	"linguachat/backend"
)

// ReadStateBackend is the slice of the message store the tracker needs.
type ReadStateBackend interface {
	UnreadMessages(ctx context.Context, chatID, userID string) ([]backend.Message, error)
	MarkRead(ctx context.Context, chatID, userID string) error
}

// ReadTracker snapshots the unread set when a chat is opened, then clears
// it backend-side. One tracker lives per chat-view mount; the snapshot
// for a chat is taken at most once per tracker, so the unread marker
// stays put after the mark-read call resolves.
type ReadTracker struct {
	store ReadStateBackend

	mu        sync.Mutex
	snapshots map[string]map[string]struct{}
}

// NewReadTracker creates a tracker bound to one mount lifetime.
func NewReadTracker(store ReadStateBackend) *ReadTracker {
	return &ReadTracker{
		store:     store,
		snapshots: make(map[string]map[string]struct{}),
	}
}

// Open returns the unread-ID snapshot for a chat, fetching and clearing
// it on first call. The snapshot-then-clear order is load-bearing:
// clearing first would leave nothing to snapshot and the unread marker
// would never render.
//
// When the mark-read call fails the snapshot is still returned alongside
// the error; the marker renders and the clear can be retried.
func (t *ReadTracker) Open(ctx context.Context, chatID, userID string) (map[string]struct{}, error) {
	if chatID == "" {
		return nil, fmt.Errorf("chat ID is required")
	}
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	t.mu.Lock()
	if snapshot, ok := t.snapshots[chatID]; ok {
		t.mu.Unlock()
		return copyIDSet(snapshot), nil
	}
	t.mu.Unlock()

	unread, err := t.store.UnreadMessages(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch unread messages for chat %q: %w", chatID, err)
	}

	snapshot := make(map[string]struct{}, len(unread))
	for _, m := range unread {
		snapshot[m.ID] = struct{}{}
	}

	t.mu.Lock()
	if existing, ok := t.snapshots[chatID]; ok {
		// A concurrent Open won the race; keep its snapshot so the marker
		// cannot move.
		t.mu.Unlock()
		return copyIDSet(existing), nil
	}
	t.snapshots[chatID] = snapshot
	t.mu.Unlock()

	if err := t.store.MarkRead(ctx, chatID, userID); err != nil {
		return copyIDSet(snapshot), fmt.Errorf("mark chat %q read: %w", chatID, err)
	}
	return copyIDSet(snapshot), nil
}

// Snapshot returns the recorded unread set without side effects, or nil
// when the chat has not been opened through this tracker.
func (t *ReadTracker) Snapshot(chatID string) map[string]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot, ok := t.snapshots[chatID]
	if !ok {
		return nil
	}
	return copyIDSet(snapshot)
}

func copyIDSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for id := range in {
		out[id] = struct{}{}
	}
	return out
}
