package storage

import (
	"errors"
	"testing"
)

func TestTranslationSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetTranslationSettings("chat-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing settings, got %v", err)
	}

	err := store.SaveTranslationSettings(TranslationSettings{
		ChatID:         "chat-1",
		Enabled:        true,
		TargetLanguage: "de",
	})
	if err != nil {
		t.Fatalf("SaveTranslationSettings failed: %v", err)
	}

	got, err := store.GetTranslationSettings("chat-1")
	if err != nil {
		t.Fatalf("GetTranslationSettings failed: %v", err)
	}
	if !got.Enabled {
		t.Fatalf("expected enabled settings")
	}
	if got.TargetLanguage != "de" {
		t.Fatalf("expected target language de, got %q", got.TargetLanguage)
	}
	if got.UpdatedAt == 0 {
		t.Fatalf("expected updated_at to be stamped")
	}
}

func TestTranslationSettingsUpsertReplaces(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveTranslationSettings(TranslationSettings{
		ChatID:         "chat-1",
		Enabled:        true,
		TargetLanguage: "fr",
	})
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	err = store.SaveTranslationSettings(TranslationSettings{
		ChatID:         "chat-1",
		Enabled:        false,
		TargetLanguage: "en",
	})
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	got, err := store.GetTranslationSettings("chat-1")
	if err != nil {
		t.Fatalf("GetTranslationSettings failed: %v", err)
	}
	if got.Enabled {
		t.Fatalf("expected disabled settings after upsert")
	}
	if got.TargetLanguage != "en" {
		t.Fatalf("expected target language en, got %q", got.TargetLanguage)
	}

	all, err := store.ListTranslationSettings()
	if err != nil {
		t.Fatalf("ListTranslationSettings failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected single row after upsert, got %d", len(all))
	}
}
