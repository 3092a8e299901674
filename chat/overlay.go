package chat

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Settings is one chat's translation preference for the signed-in user.
type Settings struct {
	Enabled        bool
	TargetLanguage string
}

// OverlayOptions configures the process-wide translation overlay.
type OverlayOptions struct {
	// DefaultTargetLanguage applies when a chat has no stored settings.
	DefaultTargetLanguage string

	// Echo pushes a settings change to the backend for cross-device
	// consistency. Called fire-and-forget; failure never blocks or
	// reverts the local update.
	Echo func(ctx context.Context, chatID string, settings Settings) error

	// Persist caches a settings change locally. Optional.
	Persist func(chatID string, settings Settings) error

	// OnError receives echo/persist failures.
	OnError func(error)

	EchoTimeout time.Duration
}

// Overlay holds per-chat translation settings, keyed by chat ID, for the
// whole process. Reads on a chat the user never configured return the
// default.
type Overlay struct {
	options OverlayOptions

	mu     sync.RWMutex
	byChat map[string]Settings
	wg     sync.WaitGroup
}

const defaultEchoTimeout = 10 * time.Second

// NewOverlay creates an overlay seeded with previously cached settings.
func NewOverlay(options OverlayOptions, seed map[string]Settings) *Overlay {
	if options.DefaultTargetLanguage == "" {
		options.DefaultTargetLanguage = "en"
	}
	if options.EchoTimeout <= 0 {
		options.EchoTimeout = defaultEchoTimeout
	}

	byChat := make(map[string]Settings, len(seed))
	for chatID, settings := range seed {
		byChat[chatID] = settings
	}

	return &Overlay{
		options: options,
		byChat:  byChat,
	}
}

// Settings returns the stored settings for a chat, or the disabled
// default when absent.
func (o *Overlay) Settings(chatID string) Settings {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if settings, ok := o.byChat[chatID]; ok {
		return settings
	}
	return Settings{Enabled: false, TargetLanguage: o.options.DefaultTargetLanguage}
}

// SetSettings replaces a chat's settings locally and echoes the change to
// the backend. The local update is optimistic: it applies immediately and
// stays applied even if the echo fails.
func (o *Overlay) SetSettings(chatID string, settings Settings) {
	if chatID == "" {
		return
	}
	if settings.TargetLanguage == "" {
		settings.TargetLanguage = o.options.DefaultTargetLanguage
	}

	o.mu.Lock()
	o.byChat[chatID] = settings
	o.mu.Unlock()

	if o.options.Persist != nil {
		if err := o.options.Persist(chatID, settings); err != nil {
			o.reportError(fmt.Errorf("persist translation settings for chat %q: %w", chatID, err))
		}
	}

	if o.options.Echo == nil {
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.options.EchoTimeout)
		defer cancel()
		if err := o.options.Echo(ctx, chatID, settings); err != nil {
			o.reportError(fmt.Errorf("echo translation settings for chat %q: %w", chatID, err))
		}
	}()
}

// Wait blocks until in-flight echoes finish. Used on shutdown and in tests.
func (o *Overlay) Wait() {
	o.wg.Wait()
}

func (o *Overlay) reportError(err error) {
	if err == nil || o.options.OnError == nil {
		return
	}
	o.options.OnError(err)
}
