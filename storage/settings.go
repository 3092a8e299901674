package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// TranslationSettings is the cached per-chat translation preference for
// the signed-in user. The backend copy is authoritative across devices;
// this row keeps the last known value for instant startup.
type TranslationSettings struct {
	ChatID         string
	Enabled        bool
	TargetLanguage string
	UpdatedAt      int64
}

// SaveTranslationSettings upserts the cached settings row for one chat.
func (s *Store) SaveTranslationSettings(settings TranslationSettings) error {
	if settings.ChatID == "" {
		return errors.New("chat_id is required")
	}
	if settings.TargetLanguage == "" {
		return errors.New("target_language is required")
	}
	if settings.UpdatedAt == 0 {
		settings.UpdatedAt = nowUnixMilli()
	}

	enabled := 0
	if settings.Enabled {
		enabled = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO chat_translation_settings (chat_id, enabled, target_language, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			enabled = excluded.enabled,
			target_language = excluded.target_language,
			updated_at = excluded.updated_at`,
		settings.ChatID,
		enabled,
		settings.TargetLanguage,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save translation settings for chat %q: %w", settings.ChatID, err)
	}

	return nil
}

// GetTranslationSettings fetches the cached settings row for one chat.
func (s *Store) GetTranslationSettings(chatID string) (*TranslationSettings, error) {
	if chatID == "" {
		return nil, errors.New("chat_id is required")
	}

	var (
		settings TranslationSettings
		enabled  int
	)
	err := s.db.QueryRow(
		`SELECT chat_id, enabled, target_language, updated_at
		FROM chat_translation_settings
		WHERE chat_id = ?`,
		chatID,
	).Scan(&settings.ChatID, &enabled, &settings.TargetLanguage, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get translation settings for chat %q: %w", chatID, err)
	}

	settings.Enabled = enabled == 1
	return &settings, nil
}

// ListTranslationSettings returns all cached settings rows.
func (s *Store) ListTranslationSettings() ([]TranslationSettings, error) {
	rows, err := s.db.Query(
		`SELECT chat_id, enabled, target_language, updated_at
		FROM chat_translation_settings
		ORDER BY chat_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list translation settings: %w", err)
	}
	defer rows.Close()

	all := make([]TranslationSettings, 0)
	for rows.Next() {
		var (
			settings TranslationSettings
			enabled  int
		)
		if err := rows.Scan(&settings.ChatID, &enabled, &settings.TargetLanguage, &settings.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan translation settings row: %w", err)
		}
		settings.Enabled = enabled == 1
		all = append(all, settings)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translation settings rows: %w", err)
	}

	return all, nil
}
