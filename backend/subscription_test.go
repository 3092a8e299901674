package backend

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newFeedServer(t *testing.T, path string, frames []feedFrame) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for _, frame := range frames {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
		// Hold the connection open so the client does not reconnect
		// mid-test; exits when the client closes.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, err := New(Options{
		BaseURL:          server.URL,
		WSURL:            wsURL,
		ReconnectBackoff: []time.Duration{10 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("New client failed: %v", err)
	}
	return client
}

func TestSubscribeMessagesDeliversSnapshots(t *testing.T) {
	frames := []feedFrame{
		{Type: frameTypeMessages, Messages: []Message{{ID: "m1", ChatID: "chat-1"}}},
		{Type: frameTypeMessages, Messages: []Message{{ID: "m1", ChatID: "chat-1"}, {ID: "m2", ChatID: "chat-1"}}},
	}
	client := newFeedServer(t, "/v1/chats/chat-1/messages/watch", frames)

	snapshots := make(chan []Message, 4)
	sub, err := client.SubscribeMessages("chat-1", func(msgs []Message) {
		snapshots <- msgs
	}, nil)
	if err != nil {
		t.Fatalf("SubscribeMessages failed: %v", err)
	}
	defer sub.Close()

	first := waitForSnapshot(t, snapshots)
	if len(first) != 1 || first[0].ID != "m1" {
		t.Fatalf("unexpected first snapshot: %+v", first)
	}

	second := waitForSnapshot(t, snapshots)
	if len(second) != 2 || second[1].ID != "m2" {
		t.Fatalf("unexpected second snapshot: %+v", second)
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	client := newFeedServer(t, "/v1/chats/chat-1/messages/watch", nil)

	sub, err := client.SubscribeMessages("chat-1", func([]Message) {}, nil)
	if err != nil {
		t.Fatalf("SubscribeMessages failed: %v", err)
	}

	sub.Close()
	sub.Close()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription did not stop after Close")
	}
}

func TestSubscribeMessagesIgnoresForeignFrames(t *testing.T) {
	frames := []feedFrame{
		{Type: frameTypeChats, Chats: []Chat{{ID: "c1"}}},
		{Type: frameTypeMessages, Messages: []Message{{ID: "m1"}}},
	}
	client := newFeedServer(t, "/v1/chats/chat-1/messages/watch", frames)

	snapshots := make(chan []Message, 4)
	sub, err := client.SubscribeMessages("chat-1", func(msgs []Message) {
		snapshots <- msgs
	}, nil)
	if err != nil {
		t.Fatalf("SubscribeMessages failed: %v", err)
	}
	defer sub.Close()

	got := waitForSnapshot(t, snapshots)
	if len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("expected chat frame to be skipped, got %+v", got)
	}
}

func waitForSnapshot(t *testing.T, snapshots <-chan []Message) []Message {
	t.Helper()
	select {
	case msgs := <-snapshots:
		return msgs
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return nil
	}
}
