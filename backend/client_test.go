package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, err := New(Options{
		BaseURL:   server.URL,
		WSURL:     wsURL,
		DeviceID:  "device-test",
		AuthToken: "token-test",
	})
	if err != nil {
		t.Fatalf("New client failed: %v", err)
	}
	return client, server
}

func TestSendMessageAssignsIDAndPosts(t *testing.T) {
	var captured SendMessageRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/chats/chat-1/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-test" {
			t.Errorf("expected auth header, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Message{
			ID:       captured.ID,
			ChatID:   "chat-1",
			SenderID: captured.SenderID,
			Text:     captured.Text,
		})
	}))

	msg, err := client.SendMessage(context.Background(), SendMessageRequest{
		ChatID:      "chat-1",
		SenderID:    "alice",
		RecipientID: "bob",
		Text:        "hello",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if msg.ID == "" {
		t.Fatalf("expected assigned message ID")
	}
	if captured.ID != msg.ID {
		t.Fatalf("expected posted ID %q to round-trip, got %q", captured.ID, msg.ID)
	}
	if captured.Timestamp == 0 {
		t.Fatalf("expected client-side timestamp to be assigned")
	}
}

func TestSendMessageRequiresContent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected, got %s %s", r.Method, r.URL.Path)
	}))

	_, err := client.SendMessage(context.Background(), SendMessageRequest{
		ChatID:   "chat-1",
		SenderID: "alice",
	})
	if err == nil {
		t.Fatalf("expected error for message without text or media")
	}
}

func TestUnreadMessagesDecodesList(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chats/chat-1/unread" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("user_id"); got != "alice" {
			t.Errorf("expected user_id=alice, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []Message{
				{ID: "m1", ChatID: "chat-1", SenderID: "bob"},
				{ID: "m2", ChatID: "chat-1", SenderID: "bob"},
			},
		})
	}))

	unread, err := client.UnreadMessages(context.Background(), "chat-1", "alice")
	if err != nil {
		t.Fatalf("UnreadMessages failed: %v", err)
	}
	if len(unread) != 2 {
		t.Fatalf("expected 2 unread messages, got %d", len(unread))
	}
	if unread[0].ID != "m1" || unread[1].ID != "m2" {
		t.Fatalf("unexpected unread IDs %q, %q", unread[0].ID, unread[1].ID)
	}
}

func TestStatusErrorsMapToSentinels(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/profiles/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))

	if _, err := client.GetProfile(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := client.CurrentUser(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestMarkReadPostsUser(t *testing.T) {
	var gotBody map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/chats/chat-1/read" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.MarkRead(context.Background(), "chat-1", "alice"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if gotBody["user_id"] != "alice" {
		t.Fatalf("expected user_id alice in body, got %q", gotBody["user_id"])
	}
}

func TestChatCounterpart(t *testing.T) {
	chat := Chat{ID: "c", ParticipantIDs: []string{"alice", "bob"}}
	if got := chat.Counterpart("alice"); got != "bob" {
		t.Fatalf("expected counterpart bob, got %q", got)
	}
	if got := chat.Counterpart("bob"); got != "alice" {
		t.Fatalf("expected counterpart alice, got %q", got)
	}

	solo := Chat{ID: "c", ParticipantIDs: []string{"alice", ""}}
	if got := solo.Counterpart("alice"); got != "" {
		t.Fatalf("expected no counterpart, got %q", got)
	}
}
