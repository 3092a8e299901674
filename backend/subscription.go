package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Subscription is a live feed handle. Close is idempotent and must be
// called before establishing a replacement subscription for the same view,
// otherwise deliveries from the old parameters keep arriving.
type Subscription struct {
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Close stops the feed and waits for the reader goroutine to exit.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed once the feed has fully stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// feedFrame is one websocket delivery. The backend pushes a full snapshot
// of the watched collection on every change.
type feedFrame struct {
	Type     string          `json:"type"`
	Messages []Message       `json:"messages,omitempty"`
	Chats    []Chat          `json:"chats,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

const (
	frameTypeMessages = "messages"
	frameTypeChats    = "chats"
)

// SubscribeMessages opens a live feed of the full ordered message list for
// one chat. onSnapshot runs on the feed goroutine for every delivery;
// onError receives transport errors that trigger a reconnect.
func (c *Client) SubscribeMessages(chatID string, onSnapshot func([]Message), onError func(error)) (*Subscription, error) {
	if chatID == "" {
		return nil, fmt.Errorf("chat ID is required")
	}
	if onSnapshot == nil {
		return nil, fmt.Errorf("snapshot callback is required")
	}

	path := fmt.Sprintf("/v1/chats/%s/messages/watch", chatID)
	return c.subscribe(path, func(frame feedFrame) {
		if frame.Type == frameTypeMessages {
			onSnapshot(frame.Messages)
		}
	}, onError)
}

// SubscribeChats opens a live feed of the user's chat set.
func (c *Client) SubscribeChats(userID string, onSnapshot func([]Chat), onError func(error)) (*Subscription, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if onSnapshot == nil {
		return nil, fmt.Errorf("snapshot callback is required")
	}

	path := fmt.Sprintf("/v1/users/%s/chats/watch", userID)
	return c.subscribe(path, func(frame feedFrame) {
		if frame.Type == frameTypeChats {
			onSnapshot(frame.Chats)
		}
	}, onError)
}

func (c *Client) subscribe(path string, handle func(feedFrame), onError func(error)) (*Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		attempt := 0
		for {
			if ctx.Err() != nil {
				return
			}

			conn, err := c.dialFeed(ctx, path)
			if err != nil {
				c.notifyFeedError(onError, err)
				if !sleepBackoff(ctx, c.backoffForAttempt(attempt)) {
					return
				}
				attempt++
				continue
			}

			attempt = 0
			err = readFeed(ctx, conn, handle)
			_ = conn.Close()
			if ctx.Err() != nil {
				return
			}
			c.notifyFeedError(onError, err)
			if !sleepBackoff(ctx, c.backoffForAttempt(attempt)) {
				return
			}
			attempt++
		}
	}()

	return sub, nil
}

func (c *Client) dialFeed(ctx context.Context, path string) (*websocket.Conn, error) {
	header := http.Header{}
	c.setAuthHeaders(header)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL+path, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("dial feed %s: %w", path, err)
	}
	return conn, nil
}

// readFeed consumes frames until the connection fails or ctx is cancelled.
// Closing the connection from another goroutine unblocks ReadJSON.
func readFeed(ctx context.Context, conn *websocket.Conn, handle func(feedFrame)) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var frame feedFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return fmt.Errorf("read feed frame: %w", err)
		}
		handle(frame)
	}
}

func (c *Client) backoffForAttempt(attempt int) time.Duration {
	backoff := c.reconnectBackoff
	if len(backoff) == 0 {
		return 0
	}
	if attempt < len(backoff) {
		return backoff[attempt]
	}
	return backoff[len(backoff)-1]
}

func (c *Client) notifyFeedError(onError func(error), err error) {
	if err == nil || onError == nil {
		return
	}
	onError(err)
}

func sleepBackoff(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
