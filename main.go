package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"linguachat/backend"
	"linguachat/chat"
	"linguachat/config"
	"linguachat/storage"
	"linguachat/translate"
	"linguachat/ui"
)

func main() {
	cfg, cfgPath, err := config.LoadOrCreate()
	if err != nil {
		log.Fatalf("startup failed while loading config: %v", err)
	}

	fmt.Printf("Device ID:       %s\n", cfg.DeviceID)
	fmt.Printf("Backend:         %s\n", cfg.BackendBaseURL)
	fmt.Printf("Config File:     %s\n", cfgPath)

	dataDir, err := config.ResolveDataDir()
	if err != nil {
		log.Fatalf("startup failed while resolving data dir: %v", err)
	}

	store, dbPath, err := storage.Open(dataDir)
	if err != nil {
		log.Fatalf("startup failed while opening database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("database close error: %v", err)
		}
	}()
	fmt.Printf("Database File:   %s\n", dbPath)

	client, err := backend.New(backend.Options{
		BaseURL:  cfg.BackendBaseURL,
		WSURL:    cfg.BackendWSURL,
		DeviceID: cfg.DeviceID,
	})
	if err != nil {
		log.Fatalf("startup failed while creating backend client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	user, err := client.CurrentUser(ctx)
	cancel()
	if err != nil {
		log.Fatalf("startup failed while resolving signed-in user: %v", err)
	}
	fmt.Printf("Signed in as:    %s (%s)\n", user.DisplayName, user.UID)

	translator := translate.NewOpenAITranslator()
	overlay := newTranslationOverlay(cfg, store, client, user.UID)

	err = ui.Run(ui.RunOptions{
		Config:     cfg,
		ConfigPath: cfgPath,
		Store:      store,
		Client:     client,
		Translator: translator,
		Overlay:    overlay,
		User:       *user,
	})
	if err != nil {
		log.Fatalf("gui failed: %v", err)
	}
}

// newTranslationOverlay seeds per-chat translation settings from the local
// cache and wires changes to both the cache and the backend echo.
func newTranslationOverlay(cfg *config.ClientConfig, store *storage.Store, client *backend.Client, userID string) *chat.Overlay {
	seed := make(map[string]chat.Settings)
	cached, err := store.ListTranslationSettings()
	if err != nil {
		log.Printf("translation settings cache unavailable: %v", err)
	}
	for _, row := range cached {
		seed[row.ChatID] = chat.Settings{
			Enabled:        row.Enabled,
			TargetLanguage: row.TargetLanguage,
		}
	}

	return chat.NewOverlay(chat.OverlayOptions{
		DefaultTargetLanguage: cfg.TargetLanguage,
		Persist: func(chatID string, settings chat.Settings) error {
			return store.SaveTranslationSettings(storage.TranslationSettings{
				ChatID:         chatID,
				Enabled:        settings.Enabled,
				TargetLanguage: settings.TargetLanguage,
			})
		},
		Echo: func(ctx context.Context, chatID string, settings chat.Settings) error {
			return client.UpdateTranslationSettings(ctx, chatID, userID, backend.TranslationSettings{
				Enabled:        settings.Enabled,
				TargetLanguage: settings.TargetLanguage,
			})
		},
		OnError: func(err error) {
			log.Printf("translation settings sync: %v", err)
		},
	}, seed)
}
