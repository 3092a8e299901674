// Package chat implements the message-stream reconciliation and
// presentation pipeline: live subscription handling, local-deletion and
// block filtering, the translation overlay, read-state tracking, and
// chronological grouping for display.
package chat

import (
	"context"
	"time"

	"linguachat/backend"
)

// Message is one backend message plus the client-side translation
// annotation. TranslatedText is derived for display and never persisted.
type Message struct {
	backend.Message
	TranslatedText string
}

// DisplayKind tags one item of the rendered conversation sequence.
type DisplayKind int

const (
	// DisplayDate is a calendar-day separator.
	DisplayDate DisplayKind = iota
	// DisplayUnread is the single new-messages marker.
	DisplayUnread
	// DisplayMessage is a regular message row.
	DisplayMessage
)

// DisplayItem is one entry of the display sequence produced by
// GroupForDisplay.
type DisplayItem struct {
	Kind    DisplayKind
	Day     time.Time
	Message Message
}

// Closer is the cancellation handle returned by feed subscriptions.
// Close must be idempotent.
type Closer interface {
	Close()
}

// DeletionLedger is the local-only record of messages hidden from this
// viewer. Entries never reach the backend and are re-applied on every
// redelivery of history.
type DeletionLedger interface {
	RecordLocalDeletion(chatID, messageID string) error
	IsLocallyDeleted(chatID, messageID string) (bool, error)
	LocallyDeletedIDs(chatID string) (map[string]struct{}, error)
}

// Translator renders text into a target language. Failure policy is the
// caller's: the stream falls back to the original text, never drops the
// message.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// SubscribeMessagesFunc opens a live feed of the full ordered message
// list for one chat.
type SubscribeMessagesFunc func(chatID string, onSnapshot func([]backend.Message), onError func(error)) (Closer, error)

// SubscribeChatsFunc opens a live feed of one user's chat set.
type SubscribeChatsFunc func(userID string, onSnapshot func([]backend.Chat), onError func(error)) (Closer, error)
