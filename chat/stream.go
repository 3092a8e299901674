package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"linguachat/backend"
)

const defaultTranslateTimeout = 30 * time.Second

// StreamOptions configures one live conversation stream. A stream is
// bound to a fixed chat, viewer, and translation configuration; changing
// any of those means closing the stream and opening a new one.
type StreamOptions struct {
	ChatID   string
	ViewerID string

	// BlockList holds sender IDs whose messages are dropped.
	BlockList []string

	TranslationEnabled bool
	TargetLanguage     string

	Subscribe  SubscribeMessagesFunc
	Ledger     DeletionLedger
	Translator Translator

	// OnBatch receives each fully processed snapshot. Batches commit
	// all-or-nothing: every translation fetch for a delivery completes
	// before the batch is published.
	OnBatch func([]Message)

	// OnError receives feed, ledger, and translation failures. A failed
	// translation falls back to the original text and still publishes.
	OnError func(error)

	TranslateTimeout time.Duration
}

// Stream is a live subscription to one chat's message list.
type Stream struct {
	options StreamOptions
	blocked map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc

	handle    Closer
	closeOnce sync.Once

	// generation increments per delivery; a batch only publishes while it
	// still carries the latest generation, so superseded batches are
	// discarded instead of rendering late.
	mu         sync.Mutex
	generation uint64
	closed     bool

	publishMu sync.Mutex
	wg        sync.WaitGroup
}

// OpenStream validates options and starts the live feed.
func OpenStream(options StreamOptions) (*Stream, error) {
	if options.ChatID == "" {
		return nil, errors.New("chat ID is required")
	}
	if options.ViewerID == "" {
		return nil, errors.New("viewer ID is required")
	}
	if options.Subscribe == nil {
		return nil, errors.New("subscribe func is required")
	}
	if options.Ledger == nil {
		return nil, errors.New("deletion ledger is required")
	}
	if options.OnBatch == nil {
		return nil, errors.New("batch callback is required")
	}
	if options.TranslationEnabled {
		if options.Translator == nil {
			return nil, errors.New("translator is required when translation is enabled")
		}
		if options.TargetLanguage == "" {
			return nil, errors.New("target language is required when translation is enabled")
		}
	}
	if options.TranslateTimeout <= 0 {
		options.TranslateTimeout = defaultTranslateTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream := &Stream{
		options: options,
		blocked: make(map[string]struct{}, len(options.BlockList)),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, id := range options.BlockList {
		stream.blocked[id] = struct{}{}
	}

	handle, err := options.Subscribe(options.ChatID, stream.handleSnapshot, stream.reportError)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to chat %q: %w", options.ChatID, err)
	}
	stream.handle = handle

	return stream, nil
}

// Close cancels the feed and discards any in-flight batches. Idempotent.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		if s.handle != nil {
			s.handle.Close()
		}
		s.wg.Wait()
	})
}

func (s *Stream) handleSnapshot(raw []backend.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.processBatch(gen, raw)
	}()
}

func (s *Stream) processBatch(gen uint64, raw []backend.Message) {
	deleted, err := s.options.Ledger.LocallyDeletedIDs(s.options.ChatID)
	if err != nil {
		// Without the ledger set nothing can be hidden; surface the error
		// and render everything rather than dropping the delivery.
		s.reportError(fmt.Errorf("load deletion ledger for chat %q: %w", s.options.ChatID, err))
		deleted = nil
	}

	batch := make([]Message, 0, len(raw))
	for _, wire := range raw {
		if _, hidden := deleted[wire.ID]; hidden {
			continue
		}
		if _, blockedSender := s.blocked[wire.SenderID]; blockedSender {
			continue
		}
		batch = append(batch, Message{Message: wire})
	}

	if s.options.TranslationEnabled {
		s.translateBatch(batch)
	}

	// Serialize publishes and re-check the generation so a slow batch
	// never lands after a newer one has rendered.
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	stale := s.closed || gen != s.generation
	s.mu.Unlock()
	if stale {
		return
	}
	s.options.OnBatch(batch)
}

// translateBatch fetches translations for every foreign-authored text
// message concurrently and waits for all of them. Failures leave
// TranslatedText empty so the original text renders.
func (s *Stream) translateBatch(batch []Message) {
	ctx, cancel := context.WithTimeout(s.ctx, s.options.TranslateTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for i := range batch {
		if batch[i].SenderID == s.options.ViewerID {
			continue
		}
		if batch[i].Text == "" {
			continue
		}

		wg.Add(1)
		go func(m *Message) {
			defer wg.Done()
			translated, err := s.options.Translator.Translate(ctx, m.Text, s.options.TargetLanguage)
			if err != nil {
				s.reportError(fmt.Errorf("translate message %q: %w", m.ID, err))
				return
			}
			m.TranslatedText = translated
		}(&batch[i])
	}
	wg.Wait()
}

func (s *Stream) reportError(err error) {
	if err == nil || s.options.OnError == nil {
		return
	}
	s.options.OnError(err)
}
