package storage

import (
	"errors"
	"fmt"
)

// RecordLocalDeletion marks a message as hidden on this device only.
// Recording the same pair twice is a no-op beyond refreshing the timestamp;
// nothing is ever sent to the backend.
func (s *Store) RecordLocalDeletion(chatID, messageID string) error {
	if chatID == "" {
		return errors.New("chat_id is required")
	}
	if messageID == "" {
		return errors.New("message_id is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO local_deletions (chat_id, message_id, deleted_at)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id, message_id) DO UPDATE SET deleted_at = excluded.deleted_at`,
		chatID,
		messageID,
		nowUnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record local deletion %q/%q: %w", chatID, messageID, err)
	}

	return nil
}

// IsLocallyDeleted returns true if a message is hidden on this device.
func (s *Store) IsLocallyDeleted(chatID, messageID string) (bool, error) {
	if chatID == "" {
		return false, errors.New("chat_id is required")
	}
	if messageID == "" {
		return false, errors.New("message_id is required")
	}

	var exists int
	if err := s.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM local_deletions WHERE chat_id = ? AND message_id = ?)`,
		chatID,
		messageID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check local deletion %q/%q: %w", chatID, messageID, err)
	}

	return exists == 1, nil
}

// LocallyDeletedIDs returns the set of hidden message IDs for one chat,
// for batch filtering of redelivered history.
func (s *Store) LocallyDeletedIDs(chatID string) (map[string]struct{}, error) {
	if chatID == "" {
		return nil, errors.New("chat_id is required")
	}

	rows, err := s.db.Query(
		`SELECT message_id FROM local_deletions WHERE chat_id = ?`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("list local deletions for chat %q: %w", chatID, err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var messageID string
		if err := rows.Scan(&messageID); err != nil {
			return nil, fmt.Errorf("scan local deletion row: %w", err)
		}
		ids[messageID] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate local deletion rows: %w", err)
	}

	return ids, nil
}
