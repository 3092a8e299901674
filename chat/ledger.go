package chat

import (
	"errors"
	"sync"
)

// MemoryLedger is an in-process DeletionLedger. The app uses the SQLite
// store so local deletions survive restarts; this implementation backs
// tests and any context without a data directory.
type MemoryLedger struct {
	mu      sync.RWMutex
	deleted map[string]map[string]struct{}
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		deleted: make(map[string]map[string]struct{}),
	}
}

// RecordLocalDeletion hides a message on this device. Idempotent.
func (l *MemoryLedger) RecordLocalDeletion(chatID, messageID string) error {
	if chatID == "" {
		return errors.New("chat ID is required")
	}
	if messageID == "" {
		return errors.New("message ID is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	ids := l.deleted[chatID]
	if ids == nil {
		ids = make(map[string]struct{})
		l.deleted[chatID] = ids
	}
	ids[messageID] = struct{}{}
	return nil
}

// IsLocallyDeleted reports whether a message is hidden on this device.
func (l *MemoryLedger) IsLocallyDeleted(chatID, messageID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.deleted[chatID][messageID]
	return ok, nil
}

// LocallyDeletedIDs returns a copy of the hidden set for one chat.
func (l *MemoryLedger) LocallyDeletedIDs(chatID string) (map[string]struct{}, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]struct{}, len(l.deleted[chatID]))
	for id := range l.deleted[chatID] {
		out[id] = struct{}{}
	}
	return out, nil
}
