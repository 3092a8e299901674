package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// GetOrCreateChat returns the chat between two users, creating it if no
// prior exchange exists.
func (c *Client) GetOrCreateChat(ctx context.Context, userID, counterpartID string) (*Chat, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}
	if counterpartID == "" {
		return nil, errors.New("counterpart ID is required")
	}
	if userID == counterpartID {
		return nil, errors.New("cannot open a chat with yourself")
	}

	var chat Chat
	body := map[string]string{
		"user_id":        userID,
		"counterpart_id": counterpartID,
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chats", body, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// MarkChatDeleted sets the logical delete marker on a chat. The chat and
// its messages stay on the backend; listings filter marked chats out.
func (c *Client) MarkChatDeleted(ctx context.Context, chatID string) error {
	if chatID == "" {
		return errors.New("chat ID is required")
	}

	path := fmt.Sprintf("/v1/chats/%s/delete", chatID)
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// HasMessages reports whether a chat has any exchanged messages at all.
func (c *Client) HasMessages(ctx context.Context, chatID string) (bool, error) {
	if chatID == "" {
		return false, errors.New("chat ID is required")
	}

	var out struct {
		Exists bool `json:"exists"`
	}
	path := fmt.Sprintf("/v1/chats/%s/messages/exists", chatID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}
